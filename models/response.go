package models

// 응답 상태 값
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse 관리자/게이트 API 표준 응답 구조
type APIResponse struct {
	Status  string      `json:"status"` // success, error
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SuccessResponse 성공 응답 생성
func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse 에러 응답 생성. err 는 nil 이면 생략된다
func ErrorResponse(message string, err error) APIResponse {
	resp := APIResponse{
		Status:  StatusError,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// FailureResponse 디바이스 API 공통 에러 응답 (기존 클라이언트 계약: {"error": "..."})
type FailureResponse struct {
	Error string `json:"error"`
}
