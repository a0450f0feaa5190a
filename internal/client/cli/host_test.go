package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/pagecollab/internal/client/api"
	"github.com/iudanet/pagecollab/internal/client/iocli"
	"github.com/iudanet/pagecollab/internal/client/provider"
	"github.com/iudanet/pagecollab/internal/client/session"
	"github.com/iudanet/pagecollab/internal/client/storage/boltdb"
	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/models"
	pkgapi "github.com/iudanet/pagecollab/pkg/api"
)

// fakeBackend записывает сохранения вместо HTTP запросов
type fakeBackend struct {
	page   *pkgapi.PageResponse
	getErr error
	err    error
	saves  [][]byte
	tokens []string
	mu     sync.Mutex
}

func (b *fakeBackend) GetPage(ctx context.Context, pageID, token string) (*pkgapi.PageResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = append(b.tokens, token)
	if b.getErr != nil {
		return nil, b.getErr
	}
	if b.page == nil {
		return nil, api.ErrNotFound
	}
	return b.page, nil
}

func (b *fakeBackend) Saver(pageID, token string) func(ctx context.Context, content []byte) error {
	return func(ctx context.Context, content []byte) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.err != nil {
			return b.err
		}
		b.saves = append(b.saves, content)
		return nil
	}
}

func (b *fakeBackend) lastSave(t *testing.T) models.Document {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.saves, "page was never saved")
	doc, err := models.UnmarshalDocument(b.saves[len(b.saves)-1])
	require.NoError(t, err)
	return doc
}

func (b *fakeBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saves)
}

type testHost struct {
	cli     *Cli
	store   *boltdb.Storage
	backend *fakeBackend
	out     *bytes.Buffer
}

func newTestHost(t *testing.T, opts Options) *testHost {
	t.Helper()

	store, err := boltdb.New(context.Background(), t.TempDir()+"/cache.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if opts.Debounce == 0 {
		opts.Debounce = time.Hour
	}
	h := &testHost{store: store, backend: &fakeBackend{}, out: &bytes.Buffer{}}
	h.cli = New(nil, store, store, h.backend, opts, slogDiscard())
	return h
}

// run выполняет команду с input в качестве ввода пользователя
func (h *testHost) run(t *testing.T, input, command string, args ...string) error {
	t.Helper()
	h.out.Reset()
	h.cli.io = iocli.NewStream(strings.NewReader(input), h.out)
	return h.cli.Run(context.Background(), command, args)
}

func TestCli_OpenEditAndSaveOnEOF(t *testing.T) {
	h := newTestHost(t, Options{})

	input := "First idea\n:h2 Plan\n- ship it\n"
	require.NoError(t, h.run(t, input, "open", "roadmap"))

	assert.Contains(t, h.out.String(), "Opened roadmap")
	assert.Equal(t, 1, h.backend.saveCount())
	assert.Equal(t, "# roadmap\nFirst idea\n## Plan\n- ship it", Render(h.backend.lastSave(t)))

	savedAt, err := h.store.GetLastSaved(context.Background(), "roadmap")
	require.NoError(t, err)
	assert.False(t, savedAt.IsZero())

	// Кэш пережил закрытие сессии
	require.NoError(t, h.run(t, "", "show", "roadmap"))
	assert.Equal(t, "# roadmap\nFirst idea\n## Plan\n- ship it\n", h.out.String())

	require.NoError(t, h.run(t, "", "pages"))
	assert.Contains(t, h.out.String(), "roadmap")
	assert.Contains(t, h.out.String(), "saved ")
	assert.Contains(t, h.out.String(), "Total: 1 page(s)")
}

func TestCli_ReopenDoesNotSeedAgain(t *testing.T) {
	h := newTestHost(t, Options{})

	require.NoError(t, h.run(t, "one\n", "open", "notes"))
	require.NoError(t, h.run(t, "two\n", "open", "notes"))

	assert.Equal(t, "# notes\none\ntwo", Render(h.backend.lastSave(t)))
}

func TestCli_QuitGuard(t *testing.T) {
	h := newTestHost(t, Options{})

	// Первый :quit отклонен, второй подтвержден
	input := "draft\n:quit\nn\n:quit\ny\nnever read\n"
	require.NoError(t, h.run(t, input, "open", "roadmap"))

	assert.Equal(t, 2, strings.Count(h.out.String(), "Leave anyway?"))
	assert.Zero(t, h.backend.saveCount())

	// Правка осталась в локальном кэше
	require.NoError(t, h.run(t, "", "show", "roadmap"))
	assert.Contains(t, h.out.String(), "draft")
	assert.NotContains(t, h.out.String(), "never read")
}

func TestCli_QuitCleanPageWithoutPrompt(t *testing.T) {
	h := newTestHost(t, Options{})

	require.NoError(t, h.run(t, "text\n:save\n:quit\n", "open", "roadmap"))

	assert.Contains(t, h.out.String(), "Saved.")
	assert.NotContains(t, h.out.String(), "Leave anyway?")
	assert.Equal(t, 1, h.backend.saveCount())
}

func TestCli_FailedSaveKeepsChanges(t *testing.T) {
	h := newTestHost(t, Options{})
	h.backend.err = errors.New("server unavailable")

	err := h.run(t, "text\n:save\n", "open", "roadmap")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsaved changes")
	assert.ErrorContains(t, err, "server unavailable")

	out := h.out.String()
	assert.Contains(t, out, "Error: save failed: server unavailable")
	assert.Contains(t, out, "["+session.LabelUnsaved+"]")
}

func TestCli_EditorCommands(t *testing.T) {
	h := newTestHost(t, Options{})

	input := strings.Join([]string{
		":h1",
		":bogus",
		":cursor x",
		":status",
		":who",
		":offline",
		":online",
		":print",
		":help",
		":quit",
	}, "\n") + "\n"
	require.NoError(t, h.run(t, input, "open", "roadmap"))

	out := h.out.String()
	assert.Contains(t, out, "Error: heading text is required")
	assert.Contains(t, out, "Error: unknown command")
	assert.Contains(t, out, "Error: cursor index must be a non-negative number")
	assert.Contains(t, out, "Status:     "+session.LabelSaved)
	assert.Contains(t, out, "Nobody else is here.")
	assert.Contains(t, out, "[Offline, ")
	assert.Contains(t, out, ":quit")
}

func TestCli_OpenCollaborative(t *testing.T) {
	token := testToken(t, "u1", "Ann", "roadmap")
	h := newTestHost(t, Options{Token: token, ServerURL: "http://localhost:1"})
	h.backend.page = &pkgapi.PageResponse{ID: "roadmap", Content: []byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"saved before"}]}]}`)}

	mockProvider := &session.ProviderMock{
		ConnectFunc:    func(ctx context.Context) error { return nil },
		SubscribeFunc:  func(fn func(provider.Event)) func() { return func() {} },
		ConnectionFunc: func() models.ConnectionStatus { return models.ConnectionConnecting },
		SyncFunc:       func() models.SyncStatus { return models.SyncStatus{} },
		PeersFunc:      func() []pkgapi.Awareness { return nil },
		SetCursorFunc:  func(anchor, head crdt.ID) {},
		CloseFunc:      func() error { return nil },
	}
	var gotIdentity identity
	h.cli.newProvider = func(pageID string, id identity) session.ProviderFactory {
		gotIdentity = id
		return func(doc *crdt.Doc) session.Provider { return mockProvider }
	}

	require.NoError(t, h.run(t, ":status\n:cursor 0\n:quit\n", "open", "roadmap"))

	assert.Equal(t, identity{UserID: "u1", Name: "Ann", PageID: "roadmap"}, gotIdentity)
	assert.Equal(t, []string{token}, h.backend.tokens)
	assert.Contains(t, h.out.String(), "Connection: connecting")
	assert.Len(t, mockProvider.ConnectCalls(), 1)
	assert.Len(t, mockProvider.CloseCalls(), 1)
	assert.Len(t, mockProvider.SetCursorCalls(), 1)
}

func TestCli_OpenRejectsForeignToken(t *testing.T) {
	h := newTestHost(t, Options{Token: testToken(t, "u1", "Ann", "budget")})

	err := h.run(t, "", "open", "roadmap")
	assert.ErrorContains(t, err, "token is issued for page")
}

func TestCli_OpenAlreadyOpen(t *testing.T) {
	h := newTestHost(t, Options{})

	cache, err := h.store.OpenPage(context.Background(), "roadmap")
	require.NoError(t, err)
	defer func() { _ = cache.Close() }()

	err = h.run(t, "", "open", "roadmap")
	assert.ErrorContains(t, err, "already open")
}

func TestCli_ShowNotCached(t *testing.T) {
	h := newTestHost(t, Options{})

	err := h.run(t, "", "show", "roadmap")
	assert.ErrorContains(t, err, "not cached")

	assert.ErrorContains(t, h.run(t, "", "show"), "missing page")
	assert.Error(t, h.run(t, "", "show", "../etc"))
}

func TestCli_UnknownCommand(t *testing.T) {
	h := newTestHost(t, Options{})
	assert.ErrorContains(t, h.run(t, "", "sync"), "unknown command")
}

func TestCli_InitialContent(t *testing.T) {
	ctx := context.Background()

	t.Run("server snapshot", func(t *testing.T) {
		h := newTestHost(t, Options{Token: "token"})
		h.backend.page = &pkgapi.PageResponse{Content: []byte(`{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Q3"}]}]}`)}
		assert.Equal(t, "## Q3", Render(h.cli.initialContent(ctx, "roadmap")))
	})

	t.Run("server failure falls back to title", func(t *testing.T) {
		h := newTestHost(t, Options{Token: "token"})
		h.backend.getErr = errors.New("connection refused")
		assert.Equal(t, "# roadmap", Render(h.cli.initialContent(ctx, "roadmap")))
	})

	t.Run("without token the server is not asked", func(t *testing.T) {
		h := newTestHost(t, Options{})
		assert.Equal(t, "# roadmap", Render(h.cli.initialContent(ctx, "roadmap")))
		assert.Empty(t, h.backend.tokens)
	})
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
