package middleware

import (
	"context"
	"net/http"
	"strings"

	"trustgateway/logger"
	"trustgateway/models"
	"trustgateway/utils"
	"trustgateway/vpn"
)

// AuthMiddleware Bearer JWT 인증 미들웨어. 토큰은 로그인 서비스가 발급한다
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := RequestID(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"ip":         vpn.ClientIP(r),
			}).Warn("Missing authorization header")
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("Authorization header required", nil))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"ip":         vpn.ClientIP(r),
			}).Warn("Invalid authorization header format")
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("Invalid authorization header format", nil))
			return
		}

		claims, err := utils.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"ip":         vpn.ClientIP(r),
				"error":      err.Error(),
			}).Warn("Invalid or expired token")
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse("Invalid or expired token", err))
			return
		}

		logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"user_id":    claims.UserID,
			"username":   claims.Username,
		}).Debug("Admin authenticated")

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
