package middleware

import (
	"net/http"

	"trustgateway/logger"
	"trustgateway/models"
)

// RequireRoles wraps a handler and allows access only if the token's role is one of allowedRoles.
// Must run after AuthMiddleware.
func RequireRoles(allowedRoles ...string) func(http.HandlerFunc) http.HandlerFunc {
	set := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		set[r] = struct{}{}
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			role := Role(r.Context())
			if role == "" {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("Unauthorized", nil))
				return
			}
			if _, ok := set[role]; !ok {
				logger.WithFields(map[string]interface{}{
					"request_id": RequestID(r.Context()),
					"username":   Username(r.Context()),
					"role":       role,
					"path":       r.URL.Path,
				}).Warn("Forbidden: insufficient role")
				writeJSON(w, http.StatusForbidden, models.ErrorResponse("Forbidden: insufficient role", nil))
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}
