package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trustgateway/cache"
	"trustgateway/config"
	"trustgateway/database"
	"trustgateway/logger"
	"trustgateway/middleware"
	"trustgateway/scheduler"
	"trustgateway/services"
	"trustgateway/utils"
	"trustgateway/vpn"
)

// @title Trust Gateway API
// @version 1.0
// @description 디바이스 인가 및 VPN 접속 검증 게이트웨이

// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT 토큰을 입력하세요. 형식: Bearer {token}

func main() {
	configPath := os.Getenv("GATEWAY_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err == nil {
		err = cfg.RequireSigningSecret()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// 로거 초기화
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(logger.Config{
		Level:    level,
		LogDir:   cfg.LogDir,
		MaxAge:   cfg.LogMaxAge,
		UseColor: cfg.IsDevelopment(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logger.Info("Trust Gateway starting (env=%s)", cfg.Env)
	logger.Info("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	if cfg.JWTSecret != "" {
		utils.SetJWTSecret(cfg.JWTSecret)
	}
	if err := utils.SetBusinessLocation(cfg.Timezone); err != nil {
		logger.Warn("Unknown timezone %q, using UTC: %v", cfg.Timezone, err)
	}

	if err := database.Initialize(cfg.DBDriver, cfg.DBDSN); err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 서비스 계층 초기화
	sqlExecutor := services.NewSQLExecutor(database.DB)
	storeOpts := services.StoreOptions{
		Dialect:      database.Dialect(),
		QueryTimeout: cfg.DBQueryTimeout,
	}
	registry := services.NewDeviceRegistry(sqlExecutor, storeOpts)
	activation := services.NewActivationService(sqlExecutor, storeOpts)
	audit := services.NewAuditService(sqlExecutor, storeOpts)

	verifier, err := vpn.NewVerifier(vpn.Config{
		Range:       cfg.VPNRange,
		APIURL:      cfg.VPNAPIURL,
		Timeout:     cfg.VPNTimeout,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		logger.Fatal("Invalid VPN configuration: %v", err)
	}
	peerSource := vpn.NewFileSource(cfg.VPNStatusFile, time.Local)

	limiter := newRedeemLimiter(cfg)

	gateway := &app{
		cfg:        cfg,
		registry:   registry,
		activation: activation,
		verifier:   verifier,
		peers:      peerSource,
		limiter:    limiter,
	}
	if cfg.VPNRequired {
		logger.Info("VPN gate enabled (range=%s)", verifier.Range())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           gateway.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 감사 로그 보관 기간 정리 (1시간마다)
	jobs := scheduler.New(scheduler.Job{
		Name:     "prune-audit-logs",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			_, err := audit.Prune(ctx, cfg.AuditRetention)
			return err
		},
	})
	jobs.Start(ctx)

	go func() {
		<-ctx.Done()
		logger.Warn("Received shutdown signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed: %v", err)
		}
	}()

	logger.Info("Server listening on %s", server.Addr)
	logger.Info("Swagger UI: http://localhost:%d/swagger/index.html", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed to start: %v", err)
	}
	jobs.Wait()
	logger.Info("Server stopped")
}

// newRedeemLimiter REDIS_URL 이 있으면 인스턴스 간 공유 카운터, 없거나 연결 실패 시 프로세스 내 버킷
func newRedeemLimiter(cfg config.Config) middleware.Limiter {
	if cfg.RedisURL != "" {
		client, err := cache.Connect(context.Background(), cfg.RedisURL)
		if err == nil {
			logger.Info("Redemption rate limit backed by Redis")
			return middleware.NewRedisLimiter(client, "", cfg.RedeemRatePerMinute, time.Minute)
		}
		logger.Warn("Redis unavailable, using in-process rate limiter: %v", err)
	}
	return middleware.NewMemoryLimiter(cfg.RedeemRatePerMinute, cfg.RedeemBurst)
}
