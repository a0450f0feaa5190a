package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pagecollab/internal/server/handlers"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testJWTConfig() handlers.JWTConfig {
	return handlers.JWTConfig{
		Secret:   []byte("test-secret-key"),
		TokenTTL: 15 * time.Minute,
	}
}

// claimsHandler checks the claims placed into the context
func claimsHandler(t *testing.T, expectedUserID, expectedPageID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := handlers.GetClaims(r.Context())
		require.True(t, ok, "claims should be in context")
		assert.Equal(t, expectedUserID, claims.UserID)
		assert.Equal(t, expectedPageID, claims.PageID)
		assert.Equal(t, "Ann", claims.UserName)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func TestAuthMiddleware_Success(t *testing.T) {
	cfg := testJWTConfig()
	token, _, err := handlers.GenerateCollabToken(cfg, "user123", "Ann", "page-1")
	require.NoError(t, err)

	wrapped := AuthMiddleware(setupTestLogger(), cfg)(claimsHandler(t, "user123", "page-1"))

	t.Run("authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pages/page-1", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pages/page-1/collab?token="+token, nil)

		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	cfg := testJWTConfig()

	expired, _, err := handlers.GenerateCollabToken(handlers.JWTConfig{Secret: cfg.Secret, TokenTTL: time.Nanosecond}, "user123", "Ann", "page-1")
	require.NoError(t, err)
	foreign, _, err := handlers.GenerateCollabToken(handlers.JWTConfig{Secret: []byte("other-secret"), TokenTTL: time.Minute}, "user123", "Ann", "page-1")
	require.NoError(t, err)

	// Ждем истечения токена
	time.Sleep(10 * time.Millisecond)

	tests := []struct {
		name        string
		header      string
		query       string
		wantMessage string
	}{
		{name: "no credentials", wantMessage: "missing token"},
		{name: "no Bearer prefix", header: "token123", wantMessage: "missing token"},
		{name: "wrong scheme", header: "Basic token123", wantMessage: "missing token"},
		{name: "only Bearer", header: "Bearer", wantMessage: "missing token"},
		{name: "malformed token", header: "Bearer invalid.token.here", wantMessage: "invalid token"},
		{name: "random string in query", query: "randomstring123", wantMessage: "invalid token"},
		{name: "expired token", header: "Bearer " + expired, wantMessage: "invalid token"},
		{name: "wrong secret", header: "Bearer " + foreign, wantMessage: "invalid token"},
	}

	wrapped := AuthMiddleware(setupTestLogger(), cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/v1/pages/page-1"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			wrapped.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMessage)
		})
	}
}
