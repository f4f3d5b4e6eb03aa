package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"trustgateway/logger"
	"trustgateway/middleware"
	"trustgateway/vpn"
)

// VPNHandler는 VPN 상태 진단 요청을 처리한다.
type VPNHandler struct {
	verifier   *vpn.Verifier
	source     vpn.PeerSource
	statusFile string
	env        string
	now        func() time.Time
}

// NewVPNHandler는 VPN 핸들러를 생성한다.
func NewVPNHandler(verifier *vpn.Verifier, source vpn.PeerSource, statusFile, env string) *VPNHandler {
	return &VPNHandler{
		verifier:   verifier,
		source:     source,
		statusFile: statusFile,
		env:        env,
		now:        time.Now,
	}
}

// DebugIP 클라이언트 IP 진단
// @Summary 클라이언트 IP 진단
// @Description 프록시 헤더로 판별한 IP, 원본 헤더 값, VPN 대역 포함 여부와 연결 상태를 반환합니다
// @Tags VPN
// @Produce json
// @Success 200 {object} map[string]interface{} "진단 결과"
// @Router /api/debug-ip [get]
func (h *VPNHandler) DebugIP(w http.ResponseWriter, r *http.Request) {
	ip := vpn.ClientIP(r)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"clientIp":     ip,
		"headers":      vpn.ProxyHeaders(r),
		"inVpnRange":   h.verifier.InRange(ip),
		"vpnRange":     h.verifier.Range().String(),
		"vpnConnected": h.verifier.IsConnected(r.Context(), r, false),
		"debug": map[string]interface{}{
			"timestamp": h.now().UTC().Format(time.RFC3339),
			"env":       h.env,
		},
	})
}

// GetMyPort 현재 클라이언트의 VPN 포트 조회
// @Summary VPN 포트 조회
// @Description 상태 파일의 CLIENT LIST 에서 클라이언트 IP 와 일치하는 첫 연결을 찾습니다
// @Tags VPN
// @Produce json
// @Success 200 {object} vpn.PortLookup "조회 결과"
// @Failure 500 {object} map[string]interface{} "상태 파일 읽기 실패"
// @Router /api/vpn/get-my-port [get]
func (h *VPNHandler) GetMyPort(w http.ResponseWriter, r *http.Request) {
	ip := vpn.ClientIP(r)
	lookup, err := vpn.LookupPeerByIP(r.Context(), h.source, ip)
	if errors.Is(err, vpn.ErrStatusLogMissing) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ip":    ip,
			"found": false,
			"port":  nil,
			"error": "Archivo de estado no encontrado",
		})
		return
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.RequestID(r.Context()),
			"ip":         ip,
			"error":      err.Error(),
		}).Error("Failed to read VPN status file")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   "Error al leer archivo de estado",
			"details": err.Error(),
			"port":    nil,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(lookup)
}

// CheckStatus VPN 연결 상태 확인 (원격 검증 경로의 대상)
// @Summary VPN 연결 상태 확인
// @Description 상태 파일로 realIp 의 연결이 살아있는지 판단합니다. vpnPort 로 연결을 좁힐 수 있고, strict 는 포트 없이 활성 연결이 여러 개면 거부합니다
// @Tags VPN
// @Produce json
// @Param realIp query string true "클라이언트 공인 IP"
// @Param vpnPort query string false "클라이언트 VPN 포트"
// @Param strict query bool false "엄격 모드"
// @Success 200 {object} vpn.StatusReport "상태"
// @Failure 400 {object} map[string]interface{} "realIp 누락"
// @Failure 500 {object} map[string]interface{} "상태 파일 읽기 실패"
// @Router /api/vpn/check-status [get]
func (h *VPNHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	realIP := strings.TrimSpace(q.Get("realIp"))
	if realIP == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "realIp es requerido"})
		return
	}

	port := strings.TrimSpace(q.Get("vpnPort"))
	if port == "" {
		port = strings.TrimSpace(r.Header.Get(vpn.PortHeader))
	}
	query := vpn.StatusQuery{
		RealIP: realIP,
		Port:   port,
		Strict: q.Get("strict") == "true",
	}

	snap, err := h.source.Snapshot(r.Context())
	if errors.Is(err, vpn.ErrStatusLogMissing) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isActive":   false,
			"error":      "Archivo de estado no encontrado",
			"statusFile": h.statusFile,
		})
		return
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"request_id": middleware.RequestID(r.Context()),
			"real_ip":    realIP,
			"error":      err.Error(),
		}).Error("Failed to read VPN status file")

		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isActive": false,
			"error":    "Error al leer archivo de estado",
			"details":  err.Error(),
		})
		return
	}

	report := vpn.CheckStatus(snap, query, h.now())

	fields := map[string]interface{}{
		"request_id": middleware.RequestID(r.Context()),
		"real_ip":    realIP,
		"port":       port,
		"strict":     query.Strict,
		"found":      report.ConnectionsFound,
		"active":     report.ActiveConnections,
	}
	switch {
	case report.Ambiguous:
		logger.WithFields(fields).Warn("Multiple active VPN connections from one IP, refusing in strict mode")
	case report.ActiveConnections > 1:
		logger.WithFields(fields).Warn("Multiple active VPN connections from one IP")
	default:
		logger.WithFields(fields).Debug("VPN status checked")
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}
