package middleware

import (
	"context"
	"net/http"

	"trustgateway/logger"
	"trustgateway/models"
	"trustgateway/vpn"
)

// ConnectionChecker VPN 연결 확인 (vpn.Verifier 가 만족)
type ConnectionChecker interface {
	IsConnected(ctx context.Context, r *http.Request, strict bool) bool
}

// VPNGate VPN 에 연결되지 않은 클라이언트를 안내 페이지로 보낸다
type VPNGate struct {
	checker   ConnectionChecker
	setupPath string
	public    PathMatcher
}

// NewVPNGate VPNGate 생성. extraPublic 은 기본 공개 경로에 추가된다
func NewVPNGate(checker ConnectionChecker, extraPublic ...string) *VPNGate {
	paths := append(DefaultVPNPublicPaths(), extraPublic...)
	return &VPNGate{
		checker:   checker,
		setupPath: "/vpn-setup",
		public:    NewPathMatcher(paths...),
	}
}

// Middleware API 경로는 엄격 모드로 확인한다
func (g *VPNGate) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.public.Match(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		api := isAPIPath(r.URL.Path)
		if g.checker.IsConnected(r.Context(), r, api) {
			next.ServeHTTP(w, r)
			return
		}

		logger.WithFields(map[string]interface{}{
			"request_id": RequestID(r.Context()),
			"path":       r.URL.Path,
			"ip":         vpn.ClientIP(r),
		}).Warn("Client not on VPN")

		if api {
			writeJSON(w, http.StatusForbidden, models.ErrorResponse("Conexión VPN requerida", nil))
			return
		}
		http.Redirect(w, r, g.setupPath, http.StatusFound)
	}
}
