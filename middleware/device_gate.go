package middleware

import (
	"context"
	"net/http"

	"trustgateway/logger"
	"trustgateway/models"
	"trustgateway/utils"
	"trustgateway/vpn"
)

// DeviceChecker 게이트가 사용하는 레지스트리 조회 (services.DeviceRegistry 가 만족)
type DeviceChecker interface {
	IsAuthorized(ctx context.Context, fingerprint string) (bool, error)
	EnforcementRequired(ctx context.Context) (bool, error)
}

// DeviceGateConfig 디바이스 게이트 설정
type DeviceGateConfig struct {
	// EntryPath 인증 페이지 경로 (리다이렉트 대상)
	EntryPath string
	// PublicPaths 기본 공개 경로에 추가할 경로
	PublicPaths   []string
	SecureCookies bool
}

// DeviceGate 모든 요청에 대해 디바이스 인가 여부를 확인하는 게이트
type DeviceGate struct {
	registry  DeviceChecker
	entryPath string
	public    PathMatcher
	secure    bool
}

// NewDeviceGate DeviceGate 생성
func NewDeviceGate(registry DeviceChecker, cfg DeviceGateConfig) *DeviceGate {
	if cfg.EntryPath == "" {
		cfg.EntryPath = "/autenticar"
	}
	paths := append(DefaultDevicePublicPaths(cfg.EntryPath), cfg.PublicPaths...)
	return &DeviceGate{
		registry:  registry,
		entryPath: cfg.EntryPath,
		public:    NewPathMatcher(paths...),
		secure:    cfg.SecureCookies,
	}
}

// Middleware 공개 경로 -> 강제 여부 -> 쿠키 -> 레지스트리 순으로 판단한다.
// 판단 중 오류가 나면 거부한다. 공개 경로가 아니면 OPTIONS 도 검사한다.
func (g *DeviceGate) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.public.Match(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		fields := map[string]interface{}{
			"request_id": RequestID(ctx),
			"path":       r.URL.Path,
			"ip":         vpn.ClientIP(r),
		}

		required, err := g.registry.EnforcementRequired(ctx)
		if err != nil {
			fields["error"] = err.Error()
			logger.WithFields(fields).Warn("Device enforcement flag unreadable, enforcing")
			delete(fields, "error")
		}
		if !required {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(FingerprintCookie)
		if err != nil || cookie.Value == "" {
			fields["ua_fingerprint"] = utils.ShortFingerprint(utils.GenerateFingerprint(r.UserAgent()))
			logger.WithFields(fields).Info("Device not authenticated, redirecting")
			g.deny(w, r)
			return
		}

		authorized, err := g.registry.IsAuthorized(ctx, cookie.Value)
		if err != nil {
			fields["error"] = err.Error()
			logger.WithFields(fields).Error("Device registry lookup failed, denying")
			g.deny(w, r)
			return
		}
		if !authorized {
			fields["fingerprint"] = utils.ShortFingerprint(cookie.Value)
			logger.WithFields(fields).Warn("Device not authorized, redirecting")
			g.deny(w, r)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// deny 쿠키를 지우고 페이지는 인증 페이지로, API 는 401 로 응답한다
func (g *DeviceGate) deny(w http.ResponseWriter, r *http.Request) {
	ClearFingerprintCookie(w, g.secure)
	if isAPIPath(r.URL.Path) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("Dispositivo no autorizado", nil))
		return
	}
	http.Redirect(w, r, g.entryPath, http.StatusFound)
}
