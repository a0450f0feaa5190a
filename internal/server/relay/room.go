package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/internal/server/storage"
	"github.com/iudanet/pagecollab/pkg/api"
)

// room holds the authoritative document of one page and its connections
type room struct {
	doc       *crdt.Doc
	log       storage.UpdateLog
	broker    Broker
	logger    *slog.Logger
	clients   map[string]*client
	remote    map[string]api.Awareness // участники других инстансов
	pageID    string
	compactAt int
	appended  int // записей в журнале с последнего сжатия
	refs      int
	mu        sync.Mutex
}

// loadRoom восстанавливает документ страницы из журнала обновлений
func loadRoom(ctx context.Context, pageID, instance string, log storage.UpdateLog, broker Broker, compactAt int, logger *slog.Logger) (*room, error) {
	entries, err := log.ListUpdates(ctx, pageID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load update log: %w", err)
	}

	r := &room{
		doc:       crdt.NewDoc("relay-" + instance),
		log:       log,
		broker:    broker,
		logger:    logger.With(slog.String("page_id", pageID)),
		clients:   make(map[string]*client),
		remote:    make(map[string]api.Awareness),
		pageID:    pageID,
		compactAt: compactAt,
		appended:  len(entries),
	}

	for _, entry := range entries {
		u, err := crdt.DecodeUpdate(entry.Payload)
		if err != nil {
			r.logger.Warn("skipping corrupted log entry", slog.Int64("seq", entry.Seq), slog.Any("error", err))
			continue
		}
		if _, err := r.doc.Apply(u, crdt.OriginCache); err != nil {
			r.logger.Warn("skipping invalid log entry", slog.Int64("seq", entry.Seq), slog.Any("error", err))
		}
	}

	r.logger.Debug("room loaded", slog.Int("updates", len(entries)), slog.Int("length", r.doc.Len()))
	return r, nil
}

func (r *room) join(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c.id] = c
}

// leave удаляет клиента и оповещает остальных участников
func (r *room) leave(ctx context.Context, c *client) {
	r.mu.Lock()
	delete(r.clients, c.id)
	hadAwareness := c.awareness != nil
	r.mu.Unlock()

	if !hadAwareness {
		return
	}
	msg := api.Message{Type: api.MsgLeave, ClientID: c.id}
	r.broadcast(msg, c.id)
	r.publish(ctx, msg)
}

// handle обрабатывает сообщение клиента
func (r *room) handle(ctx context.Context, c *client, msg api.Message) {
	var err error
	switch msg.Type {
	case api.MsgSyncStep1:
		err = r.syncStep1(c, msg)
	case api.MsgUpdate:
		err = r.update(ctx, c, msg)
	case api.MsgAwareness:
		err = r.awareness(ctx, c, msg)
	default:
		err = fmt.Errorf("unexpected message type %q", msg.Type)
	}

	if err != nil {
		c.logger.Warn("failed to handle message",
			slog.String("type", string(msg.Type)),
			slog.Any("error", err))
		c.enqueue(api.Message{Type: api.MsgError, ID: msg.ID, Error: err.Error()})
	}
}

// syncStep1 отвечает операциями, которых нет у клиента, и вектором сервера
func (r *room) syncStep1(c *client, msg api.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.doc.Diff(msg.StateVector).Encode()
	if err != nil {
		return err
	}
	c.enqueue(api.Message{Type: api.MsgSyncStep2, Update: data, StateVector: r.doc.StateVector()})

	// Новому участнику сразу показываем курсоры остальных
	for _, aw := range r.awarenessLocked(c.id) {
		c.enqueue(api.Message{Type: api.MsgAwareness, Awareness: &aw})
	}
	return nil
}

// update применяет обновление клиента, сохраняет его в журнал, подтверждает
// и рассылает остальным. Операции, ждущие зависимостей, тоже пишутся в журнал:
// ack означает, что обновление переживет перезапуск комнаты.
func (r *room) update(ctx context.Context, c *client, msg api.Message) error {
	u, err := crdt.DecodeUpdate(msg.Update)
	if err != nil {
		return err
	}

	r.mu.Lock()
	applied, err := r.doc.Apply(u, crdt.OriginRemote)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	persist := r.withBufferedLocked(u, applied)
	if persist.IsEmpty() {
		r.mu.Unlock()
		c.enqueue(api.Message{Type: api.MsgAck, ID: msg.ID})
		return nil
	}

	payload, err := persist.Encode()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	seq, err := r.log.AppendUpdate(ctx, &models.UpdateEntry{PageID: r.pageID, ClientID: c.id, Payload: payload})
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to persist update: %w", err)
	}
	r.appended++

	var out *api.Message
	if !applied.IsEmpty() {
		data, err := applied.Encode()
		if err != nil {
			r.mu.Unlock()
			return err
		}
		out = &api.Message{Type: api.MsgUpdate, Update: data}
		r.broadcastLocked(*out, c.id)
	}
	r.compactLocked(ctx, seq)
	r.mu.Unlock()

	// Подтверждаем только после записи в журнал
	c.enqueue(api.Message{Type: api.MsgAck, ID: msg.ID})
	if out != nil {
		r.publish(ctx, *out)
	}
	return nil
}

// withBufferedLocked adds the operations of u that the document keeps
// buffered to applied. Caller holds r.mu.
func (r *room) withBufferedLocked(u, applied crdt.Update) crdt.Update {
	pending := r.doc.Pending()
	if pending.IsEmpty() {
		return applied
	}

	waiting := make(map[crdt.ID]struct{}, len(pending.Ops))
	for _, op := range pending.Ops {
		waiting[op.ID] = struct{}{}
	}
	var buffered []crdt.Op
	for _, op := range u.Ops {
		if _, ok := waiting[op.ID]; ok {
			buffered = append(buffered, op)
		}
	}
	if len(buffered) == 0 {
		return applied
	}
	return crdt.MergeUpdates(applied, crdt.Update{Ops: buffered})
}

func (r *room) awareness(ctx context.Context, c *client, msg api.Message) error {
	if msg.Awareness == nil {
		return fmt.Errorf("awareness payload is missing")
	}

	aw := *msg.Awareness
	// Идентификаторы берутся из соединения и токена, а не от клиента
	aw.ClientID = c.id
	aw.UserID = c.peer.UserID
	if aw.Name == "" {
		aw.Name = c.peer.UserName
	}

	r.mu.Lock()
	c.awareness = &aw
	out := api.Message{Type: api.MsgAwareness, Awareness: &aw}
	r.broadcastLocked(out, c.id)
	r.mu.Unlock()

	r.publish(ctx, out)
	return nil
}

// applyRemote обрабатывает сообщение другого инстанса
func (r *room) applyRemote(ctx context.Context, msg api.Message) {
	switch msg.Type {
	case api.MsgUpdate:
		u, err := crdt.DecodeUpdate(msg.Update)
		if err != nil {
			r.logger.Warn("invalid update from broker", slog.Any("error", err))
			return
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		applied, err := r.doc.Apply(u, crdt.OriginRemote)
		if err != nil {
			return
		}
		persist := r.withBufferedLocked(u, applied)
		if persist.IsEmpty() {
			return
		}
		payload, err := persist.Encode()
		if err != nil {
			return
		}
		seq, err := r.log.AppendUpdate(ctx, &models.UpdateEntry{PageID: r.pageID, Payload: payload})
		if err != nil {
			r.logger.Error("failed to persist relayed update", slog.Any("error", err))
		} else {
			r.appended++
			r.compactLocked(ctx, seq)
		}
		if applied.IsEmpty() {
			return
		}
		data, err := applied.Encode()
		if err != nil {
			return
		}
		r.broadcastLocked(api.Message{Type: api.MsgUpdate, Update: data}, "")
	case api.MsgAwareness:
		if msg.Awareness == nil {
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		r.remote[msg.Awareness.ClientID] = *msg.Awareness
		r.broadcastLocked(msg, "")
	case api.MsgLeave:
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.remote, msg.ClientID)
		r.broadcastLocked(msg, "")
	}
}

// compactLocked заменяет журнал одним снимком, когда он слишком вырос.
// Caller holds r.mu.
func (r *room) compactLocked(ctx context.Context, seq int64) {
	if r.compactAt <= 0 || r.appended <= r.compactAt {
		return
	}

	// Снимок включает и буферизованные операции, иначе сжатие их потеряет
	data, err := crdt.MergeUpdates(r.doc.EncodeState(), r.doc.Pending()).Encode()
	if err != nil {
		r.logger.Error("failed to encode state for compaction", slog.Any("error", err))
		return
	}
	if err := r.log.CompactUpdates(ctx, r.pageID, seq, data); err != nil {
		r.logger.Error("failed to compact update log", slog.Any("error", err))
		return
	}

	r.logger.Info("update log compacted", slog.Int("entries", r.appended), slog.Int64("seq", seq))
	r.appended = 1
}

func (r *room) broadcast(msg api.Message, except string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastLocked(msg, except)
}

// broadcastLocked. Caller holds r.mu.
func (r *room) broadcastLocked(msg api.Message, except string) {
	for id, c := range r.clients {
		if id == except {
			continue
		}
		c.enqueue(msg)
	}
}

func (r *room) publish(ctx context.Context, msg api.Message) {
	if r.broker == nil {
		return
	}
	if err := r.broker.Publish(ctx, Envelope{PageID: r.pageID, Message: msg}); err != nil {
		r.logger.Warn("failed to publish to broker", slog.String("type", string(msg.Type)), slog.Any("error", err))
	}
}

// awarenessLocked returns the cursors of everyone except the given client,
// ordered by client id. Caller holds r.mu.
func (r *room) awarenessLocked(except string) []api.Awareness {
	result := make([]api.Awareness, 0, len(r.clients)+len(r.remote))
	for id, c := range r.clients {
		if id != except && c.awareness != nil {
			result = append(result, *c.awareness)
		}
	}
	for _, aw := range r.remote {
		result = append(result, aw)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClientID < result[j].ClientID })
	return result
}

// peers returns the number of local connections
func (r *room) peers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.clients)
}

// disconnectAll закрывает все локальные соединения комнаты
func (r *room) disconnectAll() {
	r.mu.Lock()
	clients := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
