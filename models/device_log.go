package models

// DeviceActivityLog 디바이스 활동 로그
type DeviceActivityLog struct {
	ID          int64  `json:"id" db:"id"`
	DeviceID    string `json:"device_id" db:"device_id"`
	Fingerprint string `json:"fingerprint" db:"fingerprint"`
	Action      string `json:"action" db:"action"` // activated, reactivated, deactivated
	Details     string `json:"details" db:"details"`
	CreatedAt   string `json:"created_at" db:"created_at"`
}

// 활동 액션 타입 상수
const (
	DeviceActionActivated   = "activated"
	DeviceActionReactivated = "reactivated"
	DeviceActionDeactivated = "deactivated"
)

// ActivationAttempt 활성화 코드 사용 시도 감사 기록 (결과와 무관하게 기록)
type ActivationAttempt struct {
	ID          int64  `json:"id" db:"id"`
	Code        string `json:"code" db:"code"`
	Fingerprint string `json:"fingerprint" db:"fingerprint"`
	IPAddress   string `json:"ip_address" db:"ip_address"`
	UserAgent   string `json:"user_agent" db:"user_agent"`
	Outcome     string `json:"outcome" db:"outcome"`
	CreatedAt   string `json:"created_at" db:"created_at"`
}
