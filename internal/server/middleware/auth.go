package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/pagecollab/internal/server/handlers"
)

// AuthMiddleware создает middleware для проверки токена совместного редактирования.
// Токен берется из заголовка Authorization, а если его нет, из параметра
// token (браузерный WebSocket не умеет передавать заголовки)
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				logger.Warn("missing or malformed credentials", slog.String("path", r.URL.Path))
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Валидируем токен
			claims, err := handlers.ValidateCollabToken(jwtConfig, tokenString)
			if err != nil {
				logger.Warn("invalid collaboration token", slog.Any("error", err))
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			logger.Debug("user authenticated",
				slog.String("user_id", claims.UserID),
				slog.String("page_id", claims.PageID))

			// Передаем запрос дальше с claims в контексте
			next.ServeHTTP(w, r.WithContext(handlers.WithClaims(r.Context(), claims)))
		})
	}
}

// extractToken возвращает токен из заголовка "Bearer <token>" или параметра token
func extractToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("token")
		return token, token != ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
