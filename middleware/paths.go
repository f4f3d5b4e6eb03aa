package middleware

import "strings"

// PathMatcher 공개 경로 목록. "/" 로 끝나는 항목은 접두사, 나머지는 정확히 일치
type PathMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewPathMatcher 경로 목록으로 PathMatcher 생성
func NewPathMatcher(paths ...string) PathMatcher {
	m := PathMatcher{exact: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/") && p != "/" {
			m.prefixes = append(m.prefixes, p)
			m.exact[strings.TrimSuffix(p, "/")] = struct{}{}
			continue
		}
		m.exact[p] = struct{}{}
	}
	return m
}

// Match 경로가 목록에 포함되는지 여부
func (m PathMatcher) Match(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// DefaultDevicePublicPaths 디바이스 인증 없이 접근 가능한 경로
func DefaultDevicePublicPaths(entryPath string) []string {
	return []string{
		entryPath,
		"/api/autenticar",
		"/api/verificar-dispositivo",
		"/api/configuracion-autenticacion",
		"/api/vpn/",
		"/api/debug-ip",
		"/vpn-setup",
		"/health",
		"/swagger/",
		"/favicon.ico",
	}
}

// DefaultVPNPublicPaths VPN 연결 없이 접근 가능한 경로
func DefaultVPNPublicPaths() []string {
	return []string{
		"/vpn-setup",
		"/api/vpn/",
		"/api/debug-ip",
		"/health",
		"/favicon.ico",
	}
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
