package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/pagecollab/pkg/api"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// RoomCounter возвращает количество открытых комнат
type RoomCounter interface {
	RoomCount() int
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	db      Pinger
	rooms   RoomCounter
	version string
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, version string, db Pinger, rooms RoomCounter) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		db:      db,
		rooms:   rooms,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
// Health check endpoint для мониторинга
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	if h.rooms != nil {
		resp.Rooms = h.rooms.RoomCount()
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("database is unavailable", slog.Any("error", err))
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	sendJSON(h.logger, w, resp, status)
}
