package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"trustgateway/logger"
	"trustgateway/middleware"
	"trustgateway/models"
	"trustgateway/services"
	"trustgateway/utils"
)

// 발급 가능한 코드 유효기간 (일)
const (
	minCodeDays = 1
	maxCodeDays = 3650
)

// AdminDeviceHandler는 관리자용 디바이스/코드 관리 요청을 처리한다.
type AdminDeviceHandler struct {
	registry   services.DeviceRegistry
	activation services.ActivationService
}

// NewAdminDeviceHandler는 관리자 디바이스 핸들러를 생성한다.
func NewAdminDeviceHandler(registry services.DeviceRegistry, activation services.ActivationService) *AdminDeviceHandler {
	return &AdminDeviceHandler{registry: registry, activation: activation}
}

// Devices /api/dispositivos 메서드 분기
func (h *AdminDeviceHandler) Devices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Deactivate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(models.ErrorResponse("Method not allowed", nil))
	}
}

// List 디바이스/코드 목록 조회
// @Summary 디바이스와 활성화 코드 목록
// @Description 인가된 디바이스와 활성화 코드를 조회합니다. 코드에는 남은 일수(dias_restantes)와 만료 여부(esta_expirado)가 포함됩니다
// @Tags 관리자 - 디바이스
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.DeviceListing "조회 성공"
// @Failure 401 {object} models.APIResponse "인증 필요"
// @Failure 403 {object} models.APIResponse "권한 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/dispositivos [get]
func (h *AdminDeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	listing, err := h.registry.List(r.Context())
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.RequestID(r.Context()),
			"error":      err.Error(),
		}).Error("Failed to list devices")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Error al obtener dispositivos", err))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(listing)
}

// Deactivate 디바이스 또는 코드 비활성화
// @Summary 디바이스/코드 비활성화
// @Description tipo 가 dispositivo 이면 디바이스를, codigo 이면 활성화 코드를 비활성화합니다
// @Tags 관리자 - 디바이스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.DeactivateRequest true "비활성화 대상"
// @Success 200 {object} map[string]bool "성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 404 {object} models.APIResponse "대상 없음"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/dispositivos [post]
func (h *AdminDeviceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req models.DeactivateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("id es requerido", nil))
		return
	}

	actor := middleware.Username(r.Context())

	var (
		found bool
		err   error
	)
	switch req.Type {
	case models.DeactivateTargetDevice:
		found, err = h.registry.Deactivate(r.Context(), req.ID, actor)
	case models.DeactivateTargetCode:
		found, err = h.registry.DeactivateCode(r.Context(), req.ID)
	default:
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("tipo debe ser 'dispositivo' o 'codigo'", nil))
		return
	}

	fields := map[string]interface{}{
		"request_id": middleware.RequestID(r.Context()),
		"tipo":       req.Type,
		"id":         req.ID,
		"actor":      actor,
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.WithFields(fields).Error("Failed to deactivate")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Error al desactivar", err))
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.ErrorResponse("No encontrado", nil))
		return
	}

	logger.WithFields(fields).Info("Deactivated by admin")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// IssueCode 활성화 코드 발급
// @Summary 활성화 코드 발급
// @Description 지정한 일수(기본 30일) 동안 유효한 1회용 활성화 코드를 발급합니다
// @Tags 관리자 - 디바이스
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.IssueCodeRequest false "유효기간 (일)"
// @Success 201 {object} models.APIResponse{data=models.IssuedCode} "발급 성공"
// @Failure 400 {object} models.APIResponse "잘못된 요청"
// @Failure 500 {object} models.APIResponse "서버 에러"
// @Router /api/dispositivos/codigos [post]
func (h *AdminDeviceHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req models.IssueCodeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.ErrorResponse("Invalid request body", err))
			return
		}
	}
	if req.Days == 0 {
		req.Days = int(services.DefaultCodeValidity / (24 * time.Hour))
	}
	if req.Days < minCodeDays || req.Days > maxCodeDays {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse("dias debe estar entre 1 y 3650", nil))
		return
	}

	code, err := h.activation.Issue(r.Context(), time.Duration(req.Days)*24*time.Hour)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.RequestID(r.Context()),
			"error":      err.Error(),
		}).Error("Failed to issue activation code")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse("Error al generar código", err))
		return
	}

	logger.WithFields(map[string]interface{}{
		"request_id": middleware.RequestID(r.Context()),
		"code_id":    code.ID,
		"actor":      middleware.Username(r.Context()),
		"days":       req.Days,
	}).Info("Activation code issued by admin")

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.SuccessResponse("Código generado", models.IssuedCode{
		ActivationCode: code,
		Formatted:      utils.FormatActivationCode(code.Code),
	}))
}
