package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pagecollab/pkg/api"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type roomCount int

func (c roomCount) RoomCount() int { return int(c) }

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name           string
		db             Pinger
		expectedStatus string
		rooms          int
		expectedCode   int
	}{
		{
			name:           "healthy",
			db:             pingerFunc(func(context.Context) error { return nil }),
			rooms:          3,
			expectedCode:   http.StatusOK,
			expectedStatus: "ok",
		},
		{
			name:           "database unavailable",
			db:             pingerFunc(func(context.Context) error { return errors.New("disk I/O error") }),
			rooms:          1,
			expectedCode:   http.StatusServiceUnavailable,
			expectedStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(setupTestLogger(), "dev", tt.db, roomCount(tt.rooms))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			w := httptest.NewRecorder()

			handler.Health(w, req)

			resp := w.Result()
			defer func() {
				err := resp.Body.Close()
				assert.NoError(t, err)
			}()

			assert.Equal(t, tt.expectedCode, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var healthResp api.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&healthResp))

			assert.Equal(t, tt.expectedStatus, healthResp.Status)
			assert.Equal(t, "dev", healthResp.Version)
			assert.Equal(t, tt.rooms, healthResp.Rooms)
		})
	}
}

func TestHealthHandler_WithoutDependencies(t *testing.T) {
	handler := NewHealthHandler(setupTestLogger(), "1.0.0", nil, nil)

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0","rooms":0}`, w.Body.String())
}
