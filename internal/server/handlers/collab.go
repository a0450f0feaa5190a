package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/iudanet/pagecollab/internal/server/relay"
	"github.com/iudanet/pagecollab/internal/validation"
)

//go:generate moq -out relay_mock.go . Relay

// Relay обслуживает websocket соединения совместного редактирования
type Relay interface {
	Serve(ctx context.Context, conn *websocket.Conn, peer relay.Peer) error
}

// CollabHandler обрабатывает подключения к комнате страницы
type CollabHandler struct {
	logger   *slog.Logger
	relay    Relay
	upgrader websocket.Upgrader
}

// NewCollabHandler создает новый handler совместного редактирования.
// checkOrigin nil разрешает любые Origin (клиенты не браузерные)
func NewCollabHandler(logger *slog.Logger, relay Relay, checkOrigin func(r *http.Request) bool) *CollabHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &CollabHandler{
		logger: logger,
		relay:  relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleCollab обрабатывает GET /api/v1/pages/{id}/collab
// Токен проверяется AuthMiddleware до upgrade
func (h *CollabHandler) HandleCollab(w http.ResponseWriter, r *http.Request) {
	pageID := r.PathValue("id")
	if err := validation.ValidatePageID(pageID); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	claims, ok := GetClaims(r.Context())
	if !ok {
		h.logger.Error("claims not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := claims.Authorize(pageID); err != nil {
		h.logger.Warn("token page mismatch",
			slog.String("page_id", pageID),
			slog.String("token_page_id", claims.PageID))
		sendError(h.logger, w, err.Error(), http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже отправил ответ с ошибкой
		h.logger.Warn("websocket upgrade failed", slog.String("page_id", pageID), slog.Any("error", err))
		return
	}

	peer := relay.Peer{PageID: pageID, UserID: claims.UserID, UserName: claims.UserName}
	if err := h.relay.Serve(r.Context(), conn, peer); err != nil {
		h.logger.Error("collaboration session failed", slog.String("page_id", pageID), slog.Any("error", err))
	}
}
