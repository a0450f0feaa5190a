// Package relay implements the collaboration relay: one room per page with
// the authoritative document, the sqlite update log and cross-instance
// fan-out through a Broker.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/internal/server/storage"
	"github.com/iudanet/pagecollab/pkg/api"
)

// DefaultCompactThreshold is the number of log entries of a page after
// which the log is replaced by one state snapshot
const DefaultCompactThreshold = 500

// ErrHubClosed is returned by Serve after Close
var ErrHubClosed = errors.New("relay hub closed")

// Config of the hub
type Config struct {
	Log    storage.UpdateLog
	Broker Broker // nil отключает fan-out между инстансами
	Logger *slog.Logger
	// InstanceID identifies this server in broker messages; random by default
	InstanceID       string
	CompactThreshold int
}

// Hub owns the rooms of all pages open on this instance
type Hub struct {
	cfg    Config
	logger *slog.Logger
	rooms  map[string]*room
	mu     sync.Mutex
	closed bool
}

// NewHub creates a hub
func NewHub(cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.CompactThreshold == 0 {
		cfg.CompactThreshold = DefaultCompactThreshold
	}

	return &Hub{
		cfg:    cfg,
		logger: cfg.Logger.With(slog.String("instance", cfg.InstanceID)),
		rooms:  make(map[string]*room),
	}
}

// Start subscribes to the broker, if any
func (h *Hub) Start(ctx context.Context) error {
	if h.cfg.Broker == nil {
		return nil
	}
	if err := h.cfg.Broker.Subscribe(ctx, func(env Envelope) { h.onEnvelope(ctx, env) }); err != nil {
		return fmt.Errorf("failed to subscribe to broker: %w", err)
	}
	h.logger.Info("cross-instance fan-out enabled")
	return nil
}

// Serve runs one websocket connection until it closes
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, peer Peer) error {
	r, err := h.acquire(ctx, peer.PageID)
	if err != nil {
		_ = conn.WriteJSON(api.Message{Type: api.MsgError, Error: "page is unavailable"})
		_ = conn.Close()
		return err
	}

	c := newClient(uuid.NewString(), conn, peer, h.logger.With(slog.String("page_id", peer.PageID)))
	r.join(c)
	c.logger.Info("client joined", slog.String("user_id", peer.UserID))

	go c.writeLoop()
	c.readLoop(func(msg api.Message) { r.handle(ctx, c, msg) })
	c.close()

	// Контекст запроса уже может быть отменен, а leave нужно разослать
	leaveCtx := context.WithoutCancel(ctx)
	r.leave(leaveCtx, c)
	h.release(r)
	c.logger.Info("client left", slog.Int("remaining", r.peers()))
	return nil
}

// RoomCount returns the number of pages open on this instance
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms)
}

// Close disconnects all clients and closes the broker. Serve calls that are
// still running return once their connections are closed.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	rooms := make([]*room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		r.disconnectAll()
	}

	if h.cfg.Broker != nil {
		return h.cfg.Broker.Close()
	}
	return nil
}

func (h *Hub) acquire(ctx context.Context, pageID string) (*room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	if r, ok := h.rooms[pageID]; ok {
		r.refs++
		return r, nil
	}

	r, err := loadRoom(ctx, pageID, h.cfg.InstanceID, h.cfg.Log, h.cfg.Broker, h.cfg.CompactThreshold, h.logger)
	if err != nil {
		h.logger.Error("failed to load room", slog.String("page_id", pageID), slog.Any("error", err))
		return nil, err
	}
	r.refs = 1
	h.rooms[pageID] = r
	return r, nil
}

// release выгружает комнату, когда из нее вышел последний участник
func (h *Hub) release(r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r.refs--
	if r.refs > 0 {
		return
	}
	delete(h.rooms, r.pageID)
	r.doc.Destroy()
	r.logger.Debug("room unloaded")
}

func (h *Hub) onEnvelope(ctx context.Context, env Envelope) {
	h.mu.Lock()
	r, ok := h.rooms[env.PageID]
	h.mu.Unlock()

	if ok {
		r.applyRemote(ctx, env.Message)
		return
	}

	// Комната здесь не открыта: обновление все равно попадает в журнал,
	// чтобы он оставался полным на каждом инстансе
	if env.Message.Type == api.MsgUpdate && len(env.Message.Update) > 0 {
		_, err := h.cfg.Log.AppendUpdate(ctx, &models.UpdateEntry{PageID: env.PageID, Payload: env.Message.Update})
		if err != nil {
			h.logger.Error("failed to persist relayed update",
				slog.String("page_id", env.PageID),
				slog.Any("error", err))
		}
	}
}
