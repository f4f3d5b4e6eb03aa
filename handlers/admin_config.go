package handlers

import (
	"encoding/json"
	"net/http"

	"trustgateway/logger"
	"trustgateway/middleware"
	"trustgateway/models"
	"trustgateway/services"
)

// EnforcementHandler는 디바이스 인증 강제 설정 요청을 처리한다.
type EnforcementHandler struct {
	registry      services.DeviceRegistry
	secureCookies bool
}

// NewEnforcementHandler는 설정 핸들러를 생성한다.
func NewEnforcementHandler(registry services.DeviceRegistry, secureCookies bool) *EnforcementHandler {
	return &EnforcementHandler{registry: registry, secureCookies: secureCookies}
}

// Get 인증 강제 여부 조회
// @Summary 디바이스 인증 강제 여부 조회
// @Tags 설정
// @Produce json
// @Success 200 {object} models.EnforcementResponse "조회 성공"
// @Failure 500 {object} models.EnforcementResponse "읽기 실패 (강제로 간주)"
// @Router /api/configuracion-autenticacion [get]
func (h *EnforcementHandler) Get(w http.ResponseWriter, r *http.Request) {
	required, err := h.registry.EnforcementRequired(r.Context())
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.RequestID(r.Context()),
			"error":      err.Error(),
		}).Error("Failed to read device enforcement flag")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.EnforcementResponse{Required: required, Message: "Error al leer la configuración"})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.EnforcementResponse{Required: required})
}

// Set 인증 강제 여부 변경
// @Summary 디바이스 인증 강제 여부 변경
// @Description 해제하면 demo_mode_allowed 쿠키(24시간)를 설정하고, 다시 켜면 삭제합니다
// @Tags 설정
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.EnforcementRequest true "강제 여부"
// @Success 200 {object} models.EnforcementResponse "변경 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 401 {object} models.APIResponse "인증 필요"
// @Failure 403 {object} models.APIResponse "권한 없음"
// @Failure 500 {object} models.APIResponse "저장 실패"
// @Router /api/configuracion-autenticacion [post]
func (h *EnforcementHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req models.EnforcementRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || req.Required == nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("requiere (bool) es requerido", err))
		return
	}

	actor := middleware.Username(r.Context())
	if err := h.registry.SetEnforcementRequired(r.Context(), *req.Required, actor); err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.RequestID(r.Context()),
			"actor":      actor,
			"error":      err.Error(),
		}).Error("Failed to update device enforcement flag")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Error al guardar la configuración", err))
		return
	}

	message := "Autenticación de dispositivo activada"
	if *req.Required {
		middleware.ClearDemoModeCookie(w, h.secureCookies)
	} else {
		middleware.SetDemoModeCookie(w, h.secureCookies)
		message = "Autenticación de dispositivo desactivada"
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.EnforcementResponse{
		Success:  true,
		Required: *req.Required,
		Message:  message,
	})
}
