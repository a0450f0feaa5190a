package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/pkg/api"
)

const waitFor = 3 * time.Second

// relay минимальный сервер протокола для одной страницы
type relay struct {
	doc      *crdt.Doc
	clients  map[*relayConn]struct{}
	reject   atomic.Int32 // сколько подключений отклонить
	holdAcks atomic.Bool
	held     atomic.Int32 // сколько подтверждений удержано
	tokens   chan string
	mu       sync.Mutex
}

type relayConn struct {
	conn *websocket.Conn
	id   string
	mu   sync.Mutex
}

func (c *relayConn) send(msg api.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteJSON(msg)
}

func newRelay(t *testing.T) (*relay, *httptest.Server) {
	t.Helper()

	r := &relay{
		doc:     crdt.NewDoc("relay"),
		clients: make(map[*relayConn]struct{}),
		tokens:  make(chan string, 16),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/v1/pages/page-1/collab", req.URL.Path)
		select {
		case r.tokens <- req.Header.Get("Authorization"):
		default:
		}
		if r.reject.Add(-1) >= 0 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.serve(&relayConn{conn: conn})
	}))
	t.Cleanup(server.Close)

	return r, server
}

func (r *relay) serve(c *relayConn) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.clients, c)
		r.mu.Unlock()
		if c.id != "" {
			r.broadcast(c, api.Message{Type: api.MsgLeave, ClientID: c.id})
		}
		_ = c.conn.Close()
	}()

	for {
		var msg api.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case api.MsgSyncStep1:
			data, _ := r.doc.Diff(msg.StateVector).Encode()
			c.send(api.Message{Type: api.MsgSyncStep2, Update: data, StateVector: r.doc.StateVector()})
		case api.MsgUpdate:
			u, err := crdt.DecodeUpdate(msg.Update)
			if err != nil {
				return
			}
			applied, _ := r.doc.Apply(u, crdt.OriginRemote)
			if r.holdAcks.Load() {
				r.held.Add(1)
			} else {
				c.send(api.Message{Type: api.MsgAck, ID: msg.ID})
			}
			if !applied.IsEmpty() {
				data, _ := applied.Encode()
				r.broadcast(c, api.Message{Type: api.MsgUpdate, Update: data})
			}
		case api.MsgAwareness:
			c.id = msg.Awareness.ClientID
			r.broadcast(c, msg)
		}
	}
}

func (r *relay) broadcast(from *relayConn, msg api.Message) {
	r.mu.Lock()
	targets := make([]*relayConn, 0, len(r.clients))
	for c := range r.clients {
		if c != from {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()

	for _, c := range targets {
		c.send(msg)
	}
}

func newProvider(t *testing.T, serverURL, clientID string) (*Provider, *crdt.Doc) {
	t.Helper()

	doc := crdt.NewDoc(clientID)
	p := New(Config{
		ServerURL:  serverURL,
		PageID:     "page-1",
		Token:      "token-" + clientID,
		ClientID:   clientID,
		UserID:     "user-" + clientID,
		Name:       clientID,
		NewBackOff: func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) },
	}, doc)
	t.Cleanup(func() { _ = p.Close() })

	return p, doc
}

func edit(t *testing.T, doc *crdt.Doc, index int, text string) {
	t.Helper()
	require.NoError(t, doc.Transact(crdt.OriginLocal, func(tx *crdt.Txn) error {
		return tx.Insert(index, text)
	}))
}

func synced(p *Provider) func() bool {
	return func() bool { return p.Sync().Synced }
}

func TestCollabURL(t *testing.T) {
	tests := []struct {
		name      string
		serverURL string
		want      string
		wantErr   bool
	}{
		{name: "http", serverURL: "http://localhost:8080", want: "ws://localhost:8080/api/v1/pages/p1/collab"},
		{name: "https with prefix", serverURL: "https://example.com/wiki/", want: "wss://example.com/wiki/api/v1/pages/p1/collab"},
		{name: "ws passthrough", serverURL: "ws://relay:9000", want: "ws://relay:9000/api/v1/pages/p1/collab"},
		{name: "unsupported scheme", serverURL: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CollabURL(tt.serverURL, "p1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColorFor_Stable(t *testing.T) {
	assert.Equal(t, ColorFor("alice"), ColorFor("alice"))
	assert.Contains(t, palette, ColorFor("bob"))
}

func TestProvider_TwoClientsConverge(t *testing.T) {
	r, server := newRelay(t)
	a, docA := newProvider(t, server.URL, "a")
	b, docB := newProvider(t, server.URL, "b")

	require.NoError(t, a.Connect(context.Background()))
	require.Eventually(t, synced(a), waitFor, 10*time.Millisecond)
	assert.Equal(t, "Bearer token-a", <-r.tokens)

	edit(t, docA, 0, "hello")

	require.NoError(t, b.Connect(context.Background()))
	require.Eventually(t, func() bool { return docB.Text() == "hello" }, waitFor, 10*time.Millisecond)

	edit(t, docB, 5, " world")
	require.Eventually(t, func() bool { return docA.Text() == "hello world" }, waitFor, 10*time.Millisecond)
	require.Eventually(t, synced(b), waitFor, 10*time.Millisecond)
	assert.Equal(t, models.ConnectionConnected, b.Connection())
}

func TestProvider_PendingUntilAck(t *testing.T) {
	r, server := newRelay(t)
	p, doc := newProvider(t, server.URL, "a")

	require.NoError(t, p.Connect(context.Background()))
	require.Eventually(t, synced(p), waitFor, 10*time.Millisecond)

	r.holdAcks.Store(true)
	edit(t, doc, 0, "x")

	status := p.Sync()
	assert.False(t, status.Synced)
	assert.Equal(t, 1, status.Pending)

	require.Eventually(t, func() bool { return r.held.Load() == 1 }, waitFor, 10*time.Millisecond)
	r.holdAcks.Store(false)
	edit(t, doc, 1, "y")

	// Второе подтверждение приходит, первое потеряно: синхронизация не завершена
	require.Eventually(t, func() bool { return p.Sync().Pending == 1 }, waitFor, 10*time.Millisecond)
	assert.False(t, p.Sync().Synced)
}

func TestProvider_ReconnectsAndResendsOfflineEdits(t *testing.T) {
	r, server := newRelay(t)
	r.reject.Store(3)

	p, doc := newProvider(t, server.URL, "a")
	var statuses []models.ConnectionStatus
	var mu sync.Mutex
	p.Subscribe(func(ev Event) {
		if ev.Type == EventStatus {
			mu.Lock()
			statuses = append(statuses, p.Connection())
			mu.Unlock()
		}
	})

	// Правка до подключения уходит в diff после sync_step2
	edit(t, doc, 0, "offline")

	require.NoError(t, p.Connect(context.Background()))
	require.Eventually(t, synced(p), waitFor, 10*time.Millisecond)
	require.Eventually(t, func() bool { return r.doc.Text() == "offline" }, waitFor, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, statuses, models.ConnectionConnecting)
	assert.Contains(t, statuses, models.ConnectionDisconnected)
	assert.Equal(t, models.ConnectionConnected, statuses[len(statuses)-1])
}

func TestProvider_Presence(t *testing.T) {
	_, server := newRelay(t)
	a, _ := newProvider(t, server.URL, "a")
	b, docB := newProvider(t, server.URL, "b")

	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, b.Connect(context.Background()))
	require.Eventually(t, synced(a), waitFor, 10*time.Millisecond)
	require.Eventually(t, synced(b), waitFor, 10*time.Millisecond)

	edit(t, docB, 0, "abc")
	pos := docB.PositionAt(2)
	b.SetCursor(pos, pos)

	require.Eventually(t, func() bool { return len(a.Peers()) == 1 }, waitFor, 10*time.Millisecond)
	peer := a.Peers()[0]
	assert.Equal(t, "b", peer.ClientID)
	assert.Equal(t, "user-b", peer.UserID)
	assert.Equal(t, ColorFor("user-b"), peer.Color)
	assert.Equal(t, api.Position{Replica: pos.Replica, Seq: pos.Seq}, peer.Head)

	require.NoError(t, b.Close())
	require.Eventually(t, func() bool { return len(a.Peers()) == 0 }, waitFor, 10*time.Millisecond)
}

func TestProvider_Close(t *testing.T) {
	_, server := newRelay(t)
	p, doc := newProvider(t, server.URL, "a")

	require.NoError(t, p.Connect(context.Background()))
	require.Eventually(t, synced(p), waitFor, 10*time.Millisecond)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, models.ConnectionDisconnected, p.Connection())
	assert.ErrorIs(t, p.Connect(context.Background()), ErrClosed)

	// После Close локальные правки не отправляются и не паникуют
	edit(t, doc, 0, "late")
	assert.Equal(t, 0, p.Sync().Pending)
}

func TestProvider_CloseWithoutConnect(t *testing.T) {
	p, _ := newProvider(t, "http://127.0.0.1:1", "a")
	assert.NoError(t, p.Close())
}
