package main

import (
	"encoding/json"
	"net/http"

	"trustgateway/config"
	_ "trustgateway/docs" // Swagger 문서
	"trustgateway/handlers"
	"trustgateway/middleware"
	"trustgateway/models"
	"trustgateway/services"
	"trustgateway/vpn"

	httpSwagger "github.com/swaggo/http-swagger"
)

type middlewareFunc = func(http.HandlerFunc) http.HandlerFunc

// app 라우팅에 필요한 의존성 묶음
type app struct {
	cfg        config.Config
	registry   services.DeviceRegistry
	activation services.ActivationService
	verifier   *vpn.Verifier
	peers      vpn.PeerSource
	limiter    middleware.Limiter
}

// routes 전체 라우터. 모든 요청은 로깅 -> 디바이스 게이트 -> (선택) VPN 게이트를 거친다
func (a *app) routes() http.Handler {
	secureCookies := !a.cfg.IsDevelopment()

	deviceAuth := handlers.NewDeviceAuthHandler(a.activation, a.registry, a.cfg.FingerprintMode, secureCookies)
	adminDevices := handlers.NewAdminDeviceHandler(a.registry, a.activation)
	enforcement := handlers.NewEnforcementHandler(a.registry, secureCookies)
	vpnHandler := handlers.NewVPNHandler(a.verifier, a.peers, a.cfg.VPNStatusFile, a.cfg.Env)
	pages := handlers.NewPageHandler(a.cfg.VPNRange)

	requireAdmin := []middlewareFunc{
		middleware.AuthMiddleware,
		middleware.RequireRoles(a.cfg.AdminRoles...),
	}
	adminRoute := func(h http.HandlerFunc, mws ...middlewareFunc) http.HandlerFunc {
		return middleware.ChainMiddleware(h, append(mws, requireAdmin...)...)
	}

	// 라우터 설정
	mux := http.NewServeMux()

	// Swagger 문서
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Public 엔드포인트
	mux.HandleFunc("/", homeHandler)
	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc(a.cfg.AuthEntryPath, middleware.ChainMiddleware(
		pages.AuthPage,
		middleware.AllowMethods(http.MethodGet),
	))
	mux.HandleFunc("/vpn-setup", middleware.ChainMiddleware(
		pages.VPNSetup,
		middleware.AllowMethods(http.MethodGet),
	))

	// 디바이스 인증 API
	mux.HandleFunc("/api/autenticar", middleware.ChainMiddleware(
		deviceAuth.Redeem,
		middleware.CORSMiddleware,
		middleware.AllowMethods(http.MethodPost),
		middleware.RateLimit(a.limiter),
		middleware.SetJSONHeader,
	))
	mux.HandleFunc("/api/verificar-dispositivo", middleware.ChainMiddleware(
		deviceAuth.VerifyDevice,
		middleware.CORSMiddleware,
		middleware.AllowMethods(http.MethodGet, http.MethodPost),
		middleware.SetJSONHeader,
	))

	// 관리자 API (인증 + 역할 필요)
	mux.HandleFunc("/api/dispositivos", adminRoute(
		adminDevices.Devices,
		middleware.CORSMiddleware,
		middleware.SetJSONHeader,
	))
	mux.HandleFunc("/api/dispositivos/codigos", adminRoute(
		adminDevices.IssueCode,
		middleware.CORSMiddleware,
		middleware.AllowMethods(http.MethodPost),
		middleware.SetJSONHeader,
	))

	// 설정 API: 조회는 공개, 변경은 관리자
	setEnforcement := adminRoute(enforcement.Set)
	mux.HandleFunc("/api/configuracion-autenticacion", middleware.ChainMiddleware(
		func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				setEnforcement(w, r)
				return
			}
			enforcement.Get(w, r)
		},
		middleware.CORSMiddleware,
		middleware.AllowMethods(http.MethodGet, http.MethodPost),
		middleware.SetJSONHeader,
	))

	// VPN 진단 API
	vpnRoute := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ChainMiddleware(h,
			middleware.AllowMethods(http.MethodGet),
			middleware.NoStore,
			middleware.SetJSONHeader,
		)
	}
	mux.HandleFunc("/api/debug-ip", vpnRoute(vpnHandler.DebugIP))
	mux.HandleFunc("/api/vpn/get-my-port", vpnRoute(vpnHandler.GetMyPort))
	mux.HandleFunc("/api/vpn/check-status", vpnRoute(vpnHandler.CheckStatus))

	deviceGate := middleware.NewDeviceGate(a.registry, middleware.DeviceGateConfig{
		EntryPath:     a.cfg.AuthEntryPath,
		PublicPaths:   a.cfg.PublicPaths,
		SecureCookies: secureCookies,
	})
	gates := []middlewareFunc{
		middleware.LoggingMiddleware,
		deviceGate.Middleware,
	}
	if a.cfg.VPNRequired {
		gates = append(gates, middleware.NewVPNGate(a.verifier).Middleware)
	}

	return middleware.ChainMiddleware(mux.ServeHTTP, gates...)
}

// homeHandler 루트 핸들러. 게이트를 통과한 요청만 도달한다
func homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.ErrorResponse("Not found", nil))
		return
	}
	json.NewEncoder(w).Encode(models.SuccessResponse("Trust Gateway", map[string]string{
		"version": "1.0",
		"docs":    "/swagger/index.html",
	}))
}
