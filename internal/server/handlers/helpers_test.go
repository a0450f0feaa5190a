package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// setupTestLogger создает logger для тестов
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:   []byte("test-secret-key-for-collab-tokens"),
		TokenTTL: 15 * time.Minute,
	}
}

// withClaims добавляет claims в контекст запроса, как это делает AuthMiddleware
func withClaims(r *http.Request, userID, pageID string) *http.Request {
	claims := &CollabClaims{UserID: userID, UserName: "user " + userID, PageID: pageID}
	return r.WithContext(WithClaims(r.Context(), claims))
}
