package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/pagecollab/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

// ClaimsKey ключ для хранения claims токена в контексте
const ClaimsKey contextKey = "collab_claims"

// WithClaims добавляет claims в контекст (используется AuthMiddleware)
func WithClaims(ctx context.Context, claims *CollabClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims извлекает claims токена из контекста запроса
func GetClaims(ctx context.Context) (*CollabClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*CollabClaims)
	return claims, ok && claims != nil
}

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
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
