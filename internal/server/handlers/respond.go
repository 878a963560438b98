package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/labsync/pkg/api"
)

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(logger, w, resp, statusCode)
}

// bearerToken извлекает токен из заголовка "Authorization: Bearer <token>"
func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) <= len(bearerPrefix) || authHeader[:len(bearerPrefix)] != bearerPrefix {
		return "", false
	}
	return authHeader[len(bearerPrefix):], true
}
