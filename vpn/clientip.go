package vpn

import (
	"net/http"
	"strings"
)

// UnknownIP is returned when no proxy header carries the client address.
const UnknownIP = "unknown"

// ProxyHeaderNames lists the headers consulted by ClientIP, in priority order.
var ProxyHeaderNames = []string{"X-Real-IP", "X-Forwarded-For", "CF-Connecting-IP"}

// ClientIP resolves the client address from the reverse-proxy headers:
// X-Real-IP, then the first X-Forwarded-For entry, then CF-Connecting-IP.
// The socket address is never used; behind the proxy it is always the proxy.
func ClientIP(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		return v
	}
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		first := strings.TrimSpace(strings.Split(v, ",")[0])
		if first != "" {
			return first
		}
	}
	if v := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); v != "" {
		return v
	}
	return UnknownIP
}

// ProxyHeaders returns the raw values of the proxy headers plus Host, for diagnostics.
func ProxyHeaders(r *http.Request) map[string]*string {
	out := make(map[string]*string, len(ProxyHeaderNames)+1)
	for _, name := range append(append([]string{}, ProxyHeaderNames...), "Host") {
		key := strings.ToLower(name)
		var v string
		if name == "Host" {
			v = r.Host
		} else {
			v = r.Header.Get(name)
		}
		if v == "" {
			out[key] = nil
			continue
		}
		out[key] = &v
	}
	return out
}
