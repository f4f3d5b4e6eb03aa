package models

// ActivationCode 1회용 활성화 코드. used 는 false -> true 로 한 번만 바뀐다.
type ActivationCode struct {
	ID                string  `json:"id" db:"id"`
	Code              string  `json:"code" db:"code"`
	CreatedAt         string  `json:"created_at" db:"created_at"`
	ExpiresAt         string  `json:"expires_at" db:"expires_at"`
	Used              bool    `json:"used" db:"used"`
	UsedByFingerprint *string `json:"used_by_fingerprint,omitempty" db:"used_by_fingerprint"`
	UsedAt            *string `json:"used_at,omitempty" db:"used_at"`
}

// ActivationCodeView 조회 시점에 계산되는 만료 정보를 포함한 코드
type ActivationCodeView struct {
	ActivationCode
	DaysRemaining *int `json:"dias_restantes"`
	Expired       bool `json:"esta_expirado"`
}

// IssueCodeRequest 관리자 코드 발급 요청
type IssueCodeRequest struct {
	Days int `json:"dias"`
}

// IssuedCode 발급된 코드 (원본 + 표시용)
type IssuedCode struct {
	ActivationCode
	Formatted string `json:"formatted"`
}

// RedemptionOutcome 코드 사용 결과 구분
type RedemptionOutcome string

const (
	RedemptionSuccess         RedemptionOutcome = "success"
	RedemptionCodeInvalid     RedemptionOutcome = "invalid"
	RedemptionCodeNotFound    RedemptionOutcome = "not_found"
	RedemptionCodeExpired     RedemptionOutcome = "expired"
	RedemptionCodeAlreadyUsed RedemptionOutcome = "already_used"
	RedemptionStoreError      RedemptionOutcome = "error"
)

// RedemptionResult 코드 사용 결과
type RedemptionResult struct {
	Outcome     RedemptionOutcome
	Device      *AuthorizedDevice
	Reactivated bool
}

// Valid 코드 사용 성공 여부
func (r RedemptionResult) Valid() bool {
	return r.Outcome == RedemptionSuccess
}

// Message 클라이언트에 노출되는 메시지
func (r RedemptionResult) Message() string {
	switch r.Outcome {
	case RedemptionSuccess:
		return "Dispositivo autorizado correctamente"
	case RedemptionCodeInvalid:
		return "El código de activación es requerido"
	case RedemptionCodeNotFound:
		return "Código de activación inválido"
	case RedemptionCodeExpired:
		return "Este código ha expirado"
	case RedemptionCodeAlreadyUsed:
		return "Este código ya fue utilizado"
	default:
		return "Error del servidor al validar el código"
	}
}
