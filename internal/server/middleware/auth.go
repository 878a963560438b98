package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/labsync/internal/server/handlers"
	"github.com/iudanet/labsync/internal/server/jwt"
	"github.com/iudanet/labsync/pkg/api"
)

// TokenValidator проверяет access токен
//
//go:generate moq -out token_validator_mock.go . TokenValidator
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*jwt.Claims, error)
}

// AccessTokenQueryParam имя query-параметра с токеном.
// Браузерный WebSocket не умеет выставлять заголовки, поэтому токен для /ws передается в URL.
const AccessTokenQueryParam = "access_token"

// AuthMiddleware создает middleware для проверки JWT токена
func AuthMiddleware(logger *slog.Logger, validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != "" {
				logger.Warn("Unauthorized request", "path", r.URL.Path, "reason", err)
				writeError(logger, w, err, http.StatusUnauthorized)
				return
			}

			claims, verr := validator.ValidateAccessToken(tokenString)
			if verr != nil {
				logger.Warn("Invalid access token", "error", verr)
				writeError(logger, w, "invalid token", http.StatusUnauthorized)
				return
			}

			logger.Debug("User authenticated",
				"user_id", claims.UserID,
				"username", claims.Username,
				"device_id", claims.DeviceID,
			)

			next.ServeHTTP(w, r.WithContext(handlers.WithClaims(r.Context(), claims)))
		})
	}
}

// extractToken достает токен из заголовка Authorization либо из query.
// Вторым значением возвращается причина отказа.
func extractToken(r *http.Request) (string, string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", "invalid token format"
		}
		return parts[1], ""
	}
	if token := r.URL.Query().Get(AccessTokenQueryParam); token != "" {
		return token, ""
	}
	return "", "missing token"
}

// writeError пишет ошибку в формате api.ErrorResponse
func writeError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := api.ErrorResponse{Error: http.StatusText(statusCode), Message: message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
