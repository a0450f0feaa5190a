// Package provider connects a shared document to the collaboration relay.
package provider

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/pkg/api"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 20
)

// ErrClosed is returned by Connect after Close
var ErrClosed = errors.New("provider closed")

// EventType describes what changed in the provider
type EventType string

const (
	// EventStatus: connection or sync status changed
	EventStatus EventType = "status"
	// EventSynced: initial sync of a connection completed
	EventSynced EventType = "synced"
	// EventPresence: remote participants changed
	EventPresence EventType = "presence"
)

// Event is delivered to subscribers outside of provider locks.
// Subscribers read the current state through the provider methods.
type Event struct {
	Type EventType
}

// Config describes the page connection
type Config struct {
	// NewBackOff builds the reconnection policy; exponential without limit by default
	NewBackOff func() backoff.BackOff
	Logger     *slog.Logger
	Dialer     *websocket.Dialer
	ServerURL  string // http(s)://host[:port]
	PageID     string
	Token      string // opaque collaboration credential
	ClientID   string // unique per connection owner (session)
	UserID     string
	Name       string
	Color      string
}

// Provider keeps a document in sync with the relay and tracks presence.
// Remote updates are applied with crdt.OriginRemote; updates whose origin
// is replicated are sent to the relay.
type Provider struct {
	doc       *crdt.Doc
	logger    *slog.Logger
	cancel    context.CancelFunc
	unobserve func()
	conn      *websocket.Conn
	local     *api.Awareness
	peers     map[string]api.Awareness
	inflight  map[uint64]struct{}
	observers map[int]func(Event)
	wake      chan struct{}
	done      chan struct{}
	status    models.ConnectionStatus
	cfg       Config
	outbox    []api.Message
	nextID    uint64
	nextObs   int
	mu        sync.Mutex
	synced    bool // начальная синхронизация текущего соединения завершена
	started   bool
	closed    bool
}

// New creates a provider for doc. Nothing happens until Connect.
func New(cfg Config, doc *crdt.Doc) *Provider {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = DefaultBackOff
	}
	if cfg.Color == "" {
		cfg.Color = ColorFor(cfg.UserID)
	}

	return &Provider{
		doc:       doc,
		cfg:       cfg,
		logger:    cfg.Logger.With(slog.String("page_id", cfg.PageID), slog.String("client_id", cfg.ClientID)),
		peers:     make(map[string]api.Awareness),
		inflight:  make(map[uint64]struct{}),
		observers: make(map[int]func(Event)),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		status:    models.ConnectionDisconnected,
	}
}

// DefaultBackOff retries forever with exponential delays up to 30 seconds
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// palette цвета курсоров участников
var palette = []string{"#e91e63", "#3f51b5", "#009688", "#ff9800", "#9c27b0", "#4caf50", "#795548", "#2196f3"}

// ColorFor picks a stable cursor color for a user
func ColorFor(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return palette[h.Sum32()%uint32(len(palette))]
}

// CollabURL builds the websocket endpoint of a page
func CollabURL(serverURL, pageID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/pages/" + pageID + "/collab"
	u.RawQuery = ""
	return u.String(), nil
}

// Connect starts the connection loop. It returns immediately; progress is
// reported through Subscribe.
func (p *Provider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.started {
		return nil
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.unobserve = p.doc.Observe(p.onUpdate)
	go p.run(ctx)

	return nil
}

// Subscribe registers fn for provider events. The returned function unregisters it.
func (p *Provider) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.observers, id)
	}
}

// Connection returns the connection state
func (p *Provider) Connection() models.ConnectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.status
}

// Sync returns the sync state: synced only after the initial exchange of the
// current connection and with no unacknowledged updates.
func (p *Provider) Sync() models.SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return models.SyncStatus{
		Synced:  p.status == models.ConnectionConnected && p.synced && len(p.inflight) == 0,
		Pending: len(p.inflight),
	}
}

// SetCursor publishes the local selection as relative positions
func (p *Provider) SetCursor(anchor, head crdt.ID) {
	p.mu.Lock()
	p.local = &api.Awareness{
		ClientID: p.cfg.ClientID,
		UserID:   p.cfg.UserID,
		Name:     p.cfg.Name,
		Color:    p.cfg.Color,
		Anchor:   api.Position{Replica: anchor.Replica, Seq: anchor.Seq},
		Head:     api.Position{Replica: head.Replica, Seq: head.Seq},
	}
	if p.conn != nil && p.synced {
		aw := *p.local
		p.enqueueLocked(api.Message{Type: api.MsgAwareness, Awareness: &aw})
	}
	p.mu.Unlock()
}

// Peers returns remote participants ordered by client ID
func (p *Provider) Peers() []api.Awareness {
	p.mu.Lock()
	defer p.mu.Unlock()

	peers := make([]api.Awareness, 0, len(p.peers))
	for _, peer := range p.peers {
		peers = append(peers, peer)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ClientID < peers[j].ClientID })
	return peers
}

// Close stops reconnecting, closes the socket and waits for the loop to exit
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	cancel, unobserve, started := p.cancel, p.unobserve, p.started
	p.mu.Unlock()

	if unobserve != nil {
		unobserve()
	}
	if started {
		cancel()
		<-p.done
	}

	p.mu.Lock()
	p.observers = make(map[int]func(Event))
	p.mu.Unlock()
	return nil
}

func (p *Provider) run(ctx context.Context) {
	defer close(p.done)

	policy := p.cfg.NewBackOff()
	for {
		p.setStatus(models.ConnectionConnecting)

		conn, err := p.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.setStatus(models.ConnectionDisconnected)
				return
			}
			p.logger.Warn("failed to connect", slog.Any("error", err))
		} else {
			policy.Reset()
			p.serve(ctx, conn)
		}

		p.setStatus(models.ConnectionDisconnected)
		if ctx.Err() != nil {
			return
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			p.logger.Error("reconnection attempts exhausted")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	endpoint, err := CollabURL(p.cfg.ServerURL, p.cfg.PageID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.cfg.Token)

	conn, resp, err := p.cfg.Dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	return conn, nil
}

// serve обслуживает одно соединение до его разрыва
func (p *Provider) serve(ctx context.Context, conn *websocket.Conn) {
	p.mu.Lock()
	p.conn = conn
	p.outbox = nil
	p.inflight = make(map[uint64]struct{})
	p.synced = false
	p.status = models.ConnectionConnected
	p.enqueueLocked(api.Message{Type: api.MsgSyncStep1, StateVector: p.doc.StateVector()})
	p.mu.Unlock()

	p.logger.Info("connected to relay")
	p.emit(Event{Type: EventStatus})

	connCtx, cancel := context.WithCancel(ctx)
	writerDone := make(chan struct{})
	go p.writeLoop(connCtx, conn, writerDone)

	p.readLoop(conn)

	cancel()
	<-writerDone

	p.mu.Lock()
	p.conn = nil
	p.outbox = nil
	p.mu.Unlock()
}

func (p *Provider) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg api.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}

		if err := p.handle(msg); err != nil {
			p.logger.Warn("failed to handle message",
				slog.String("type", string(msg.Type)),
				slog.Any("error", err))
		}
	}
}

func (p *Provider) writeLoop(ctx context.Context, conn *websocket.Conn, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-p.wake:
			for _, msg := range p.takeOutbox() {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					p.logger.Warn("websocket write error", slog.Any("error", err))
					return
				}
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (p *Provider) handle(msg api.Message) error {
	switch msg.Type {
	case api.MsgSyncStep2:
		if err := p.applyRemote(msg.Update); err != nil {
			return err
		}
		// Отправляем серверу то, чего у него нет (включая правки, сделанные офлайн)
		if diff := p.doc.Diff(msg.StateVector); !diff.IsEmpty() {
			p.sendUpdate(diff)
		}

		p.mu.Lock()
		p.synced = true
		if p.local != nil {
			aw := *p.local
			p.enqueueLocked(api.Message{Type: api.MsgAwareness, Awareness: &aw})
		}
		p.mu.Unlock()

		p.logger.Debug("initial sync completed")
		p.emit(Event{Type: EventSynced})
		p.emit(Event{Type: EventStatus})
	case api.MsgUpdate:
		return p.applyRemote(msg.Update)
	case api.MsgAck:
		p.mu.Lock()
		_, ok := p.inflight[msg.ID]
		delete(p.inflight, msg.ID)
		p.mu.Unlock()
		if ok {
			p.emit(Event{Type: EventStatus})
		}
	case api.MsgAwareness:
		if msg.Awareness == nil || msg.Awareness.ClientID == p.cfg.ClientID {
			return nil
		}
		p.mu.Lock()
		p.peers[msg.Awareness.ClientID] = *msg.Awareness
		p.mu.Unlock()
		p.emit(Event{Type: EventPresence})
	case api.MsgLeave:
		p.mu.Lock()
		_, ok := p.peers[msg.ClientID]
		delete(p.peers, msg.ClientID)
		p.mu.Unlock()
		if ok {
			p.emit(Event{Type: EventPresence})
		}
	case api.MsgError:
		p.logger.Warn("relay reported error", slog.String("error", msg.Error))
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (p *Provider) applyRemote(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	u, err := crdt.DecodeUpdate(data)
	if err != nil {
		return err
	}
	if _, err := p.doc.Apply(u, crdt.OriginRemote); err != nil {
		return fmt.Errorf("failed to apply remote update: %w", err)
	}
	return nil
}

// onUpdate отправляет на сервер обновления, созданные на этой реплике
func (p *Provider) onUpdate(u crdt.Update, origin crdt.Origin) {
	if !origin.Replicated() {
		return
	}
	p.sendUpdate(u)
}

// sendUpdate ставит обновление в очередь; без соединения обновление не
// теряется: оно уйдет в diff после следующего sync_step2
func (p *Provider) sendUpdate(u crdt.Update) {
	data, err := u.Encode()
	if err != nil {
		p.logger.Error("failed to encode update", slog.Any("error", err))
		return
	}

	p.mu.Lock()
	if p.conn == nil {
		p.mu.Unlock()
		return
	}
	p.nextID++
	id := p.nextID
	p.inflight[id] = struct{}{}
	p.enqueueLocked(api.Message{Type: api.MsgUpdate, ID: id, Update: data})
	p.mu.Unlock()

	p.emit(Event{Type: EventStatus})
}

// enqueueLocked. Caller holds p.mu.
func (p *Provider) enqueueLocked(msg api.Message) {
	p.outbox = append(p.outbox, msg)
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Provider) takeOutbox() []api.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.outbox
	p.outbox = nil
	return out
}

func (p *Provider) setStatus(status models.ConnectionStatus) {
	p.mu.Lock()
	if p.status == status {
		p.mu.Unlock()
		return
	}
	p.status = status
	hadPeers := false
	if status != models.ConnectionConnected {
		// Присутствие эфемерно: при потере соединения участники исчезают
		hadPeers = len(p.peers) > 0
		p.peers = make(map[string]api.Awareness)
		p.inflight = make(map[uint64]struct{})
		p.synced = false
	}
	p.mu.Unlock()

	p.logger.Debug("connection status changed", slog.String("status", string(status)))
	p.emit(Event{Type: EventStatus})
	if hadPeers {
		p.emit(Event{Type: EventPresence})
	}
}

func (p *Provider) emit(ev Event) {
	p.mu.Lock()
	keys := make([]int, 0, len(p.observers))
	for key := range p.observers {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	observers := make([]func(Event), 0, len(keys))
	for _, key := range keys {
		observers = append(observers, p.observers[key])
	}
	p.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
