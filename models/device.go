package models

// AuthorizedDevice 인가된 디바이스 레코드. 삭제하지 않고 active 플래그로만 비활성화한다.
type AuthorizedDevice struct {
	ID                string  `json:"id" db:"id"`
	Fingerprint       string  `json:"fingerprint" db:"fingerprint"`
	FirstAuthorizedAt string  `json:"first_authorized_at" db:"first_authorized_at"`
	LastSeenAt        string  `json:"last_seen_at" db:"last_seen_at"`
	SourceIP          string  `json:"source_ip" db:"source_ip"`
	UserAgent         string  `json:"user_agent" db:"user_agent"`
	Active            bool    `json:"active" db:"active"`
	ActivationCodeID  *string `json:"activation_code_id,omitempty" db:"activation_code_id"`
	DeactivatedAt     *string `json:"deactivated_at,omitempty" db:"deactivated_at"`
}

// DeviceListing 관리자 화면용 디바이스/코드 목록
type DeviceListing struct {
	Devices []AuthorizedDevice   `json:"dispositivos"`
	Codes   []ActivationCodeView `json:"codigos"`
}

// RedeemRequest 활성화 코드 사용 요청. 기존 클라이언트는 "codigo" 필드를 보낸다.
type RedeemRequest struct {
	Codigo string `json:"codigo"`
	Code   string `json:"code"`
}

// Value 요청에 담긴 코드 값
func (r RedeemRequest) Value() string {
	if r.Codigo != "" {
		return r.Codigo
	}
	return r.Code
}

// RedeemResponse 활성화 성공 응답
type RedeemResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"mensaje"`
	Fingerprint string `json:"fingerprint"`
}

// DeviceCheckRequest 디바이스 확인 요청
type DeviceCheckRequest struct {
	Fingerprint string `json:"fingerprint"`
}

// DeviceCheckResponse 디바이스 확인 응답
type DeviceCheckResponse struct {
	Success     bool   `json:"success,omitempty"`
	Authorized  bool   `json:"autorizado"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

// DeactivateRequest 관리자 비활성화 요청 (tipo: dispositivo | codigo)
type DeactivateRequest struct {
	Type string `json:"tipo"`
	ID   string `json:"id"`
}

// 비활성화 대상 타입
const (
	DeactivateTargetDevice = "dispositivo"
	DeactivateTargetCode   = "codigo"
)

// EnforcementRequest 디바이스 인증 강제 여부 변경 요청
type EnforcementRequest struct {
	Required *bool `json:"requiere"`
}

// EnforcementResponse 디바이스 인증 강제 여부 응답
type EnforcementResponse struct {
	Success  bool   `json:"success,omitempty"`
	Required bool   `json:"requiere"`
	Message  string `json:"mensaje,omitempty"`
}
