package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"trustgateway/config"
	"trustgateway/logger"
	"trustgateway/middleware"
	"trustgateway/models"
	"trustgateway/services"
	"trustgateway/utils"
	"trustgateway/vpn"
)

// DeviceAuthHandler는 활성화 코드 사용과 디바이스 확인 요청을 처리한다.
type DeviceAuthHandler struct {
	activation      services.ActivationService
	registry        services.DeviceRegistry
	fingerprintMode string
	secureCookies   bool
}

// NewDeviceAuthHandler는 디바이스 인증 핸들러를 생성한다.
func NewDeviceAuthHandler(activation services.ActivationService, registry services.DeviceRegistry, fingerprintMode string, secureCookies bool) *DeviceAuthHandler {
	if fingerprintMode == "" {
		fingerprintMode = config.FingerprintUserAgent
	}
	return &DeviceAuthHandler{
		activation:      activation,
		registry:        registry,
		fingerprintMode: fingerprintMode,
		secureCookies:   secureCookies,
	}
}

// newFingerprint 설정된 방식으로 이번 디바이스의 지문을 만든다
func (h *DeviceAuthHandler) newFingerprint(r *http.Request) (string, error) {
	if h.fingerprintMode == config.FingerprintToken {
		return utils.GenerateOpaqueToken()
	}
	return utils.GenerateFingerprint(r.UserAgent()), nil
}

// Redeem 활성화 코드 사용
// @Summary 활성화 코드 사용
// @Description 1회용 활성화 코드로 현재 디바이스를 인가하고 device_fingerprint 쿠키를 설정합니다
// @Tags 디바이스 인증
// @Accept json
// @Produce json
// @Param request body models.RedeemRequest true "활성화 코드"
// @Success 200 {object} models.RedeemResponse "인가 성공"
// @Failure 400 {object} models.FailureResponse "코드 누락"
// @Failure 401 {object} models.FailureResponse "없는 코드/만료/이미 사용됨"
// @Failure 429 {object} models.FailureResponse "시도 횟수 초과"
// @Failure 500 {object} models.FailureResponse "서버 에러"
// @Router /api/autenticar [post]
func (h *DeviceAuthHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestID(r.Context())

	var req models.RedeemRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid redeem request")

		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.FailureResponse{Error: "Solicitud inválida"})
		return
	}

	if strings.TrimSpace(req.Value()) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.FailureResponse{Error: "El código de activación es requerido"})
		return
	}

	fingerprint, err := h.newFingerprint(r)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate device fingerprint")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.FailureResponse{Error: "Error del servidor al validar el código"})
		return
	}

	result, err := h.activation.Redeem(r.Context(), req.Value(), fingerprint, r.UserAgent(), vpn.ClientIP(r))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.FailureResponse{Error: result.Message()})
		return
	}

	if !result.Valid() {
		status := http.StatusUnauthorized
		if result.Outcome == models.RedemptionCodeInvalid {
			status = http.StatusBadRequest
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(models.FailureResponse{Error: result.Message()})
		return
	}

	middleware.SetFingerprintCookie(w, fingerprint, h.secureCookies)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.RedeemResponse{
		Success:     true,
		Message:     result.Message(),
		Fingerprint: fingerprint,
	})
}

// VerifyDevice 디바이스 인가 여부 확인
// @Summary 디바이스 인가 확인
// @Description POST 는 본문의 지문을, GET 은 쿠키(없으면 User-Agent 지문)를 확인합니다
// @Tags 디바이스 인증
// @Accept json
// @Produce json
// @Param request body models.DeviceCheckRequest false "확인할 지문 (POST)"
// @Success 200 {object} models.DeviceCheckResponse "확인 결과"
// @Failure 400 {object} models.DeviceCheckResponse "지문 누락"
// @Failure 401 {object} models.DeviceCheckResponse "인가되지 않음 (POST)"
// @Failure 500 {object} models.DeviceCheckResponse "서버 에러"
// @Router /api/verificar-dispositivo [post]
// @Router /api/verificar-dispositivo [get]
func (h *DeviceAuthHandler) VerifyDevice(w http.ResponseWriter, r *http.Request) {
	var fingerprint string
	switch r.Method {
	case http.MethodPost:
		var req models.DeviceCheckRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || strings.TrimSpace(req.Fingerprint) == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.DeviceCheckResponse{Authorized: false, Error: "Fingerprint requerido"})
			return
		}
		fingerprint = strings.TrimSpace(req.Fingerprint)
	default:
		if c, err := r.Cookie(middleware.FingerprintCookie); err == nil && c.Value != "" {
			fingerprint = c.Value
		} else {
			fingerprint = utils.GenerateFingerprint(r.UserAgent())
		}
	}

	authorized, err := h.registry.IsAuthorized(r.Context(), fingerprint)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.RequestID(r.Context()),
			"error":      err.Error(),
		}).Error("Failed to verify device")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.DeviceCheckResponse{Authorized: false, Error: "Error al verificar dispositivo"})
		return
	}

	if !authorized {
		middleware.ClearFingerprintCookie(w, h.secureCookies)
		status := http.StatusOK
		if r.Method == http.MethodPost {
			status = http.StatusUnauthorized
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(models.DeviceCheckResponse{Authorized: false, Fingerprint: fingerprint})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.DeviceCheckResponse{
		Success:     true,
		Authorized:  true,
		Fingerprint: fingerprint,
	})
}
