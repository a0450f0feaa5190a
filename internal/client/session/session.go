// Package session coordinates one open page: the shared document, the
// collaboration provider, the local cache and persistence to the backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/iudanet/pagecollab/internal/client/provider"
	"github.com/iudanet/pagecollab/internal/client/storage"
	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/internal/validation"
)

const (
	// DefaultDebounce is the quiet period after the last local edit before autosave
	DefaultDebounce = 2000 * time.Millisecond
	// DefaultSaveTimeout bounds a single save callback
	DefaultSaveTimeout = 30 * time.Second
)

// ErrSessionClosed is returned by Edit after Close
var ErrSessionClosed = errors.New("session closed")

// Config describes the page being opened
type Config struct {
	// Initial seeds an empty shared document; nil disables seeding
	Initial *models.Document
	// PageID identifies the page (see validation.ValidatePageID)
	PageID string
	// Token is the collaboration credential; empty disables collaboration
	Token string
	// ReplicaID identifies this document replica; random by default
	ReplicaID   string
	Debounce    time.Duration
	SaveTimeout time.Duration
}

// Deps are the collaborators of a session
type Deps struct {
	// Clock drives the debounce timer; real clock by default
	Clock clock.Clock
	// Cache opens the on-device cache of the page; nil disables caching
	Cache storage.PageStorage
	// NewProvider creates the network provider; required for collaboration
	NewProvider ProviderFactory
	// Save persists the serialized document
	Save   SaveFunc
	Logger *slog.Logger
}

// Session owns the shared document of one open page and everything attached
// to it. Close is the single teardown.
type Session struct {
	clock       clock.Clock
	ctx         context.Context
	cancel      context.CancelFunc
	doc         *crdt.Doc
	cache       storage.PageCache
	provider    Provider
	save        SaveFunc
	logger      *slog.Logger
	initial     *models.Document
	timer       *clock.Timer
	lastSaveErr error
	queuedDone  chan struct{}
	subscribers map[int]func(Status)
	unsubscribe []func()
	last        Status
	cfg         Config
	connection  models.ConnectionStatus
	sync        models.SyncStatus
	wg          sync.WaitGroup
	editGen     uint64 // увеличивается на каждую локальную правку
	timerGen    uint64
	nextSub     int
	mu          sync.Mutex
	dirty       bool
	saving      bool
	cacheSynced bool
	online      bool
	seeded      bool
	closed      bool
}

// Open instantiates the shared document for a page, replays the local cache,
// starts the provider when a token is given and seeds the document from
// cfg.Initial if it stays empty.
func Open(ctx context.Context, cfg Config, deps Deps) (*Session, error) {
	if err := validation.ValidatePageID(cfg.PageID); err != nil {
		return nil, fmt.Errorf("invalid page: %w", err)
	}
	if deps.Save == nil {
		return nil, fmt.Errorf("save callback is required")
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	if cfg.ReplicaID == "" {
		cfg.ReplicaID = uuid.NewString()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Session{
		cfg:         cfg,
		clock:       deps.Clock,
		doc:         crdt.NewDoc(cfg.ReplicaID),
		save:        deps.Save,
		initial:     cfg.Initial,
		logger:      deps.Logger.With(slog.String("page_id", cfg.PageID)),
		subscribers: make(map[int]func(Status)),
		connection:  models.ConnectionDisconnected,
		cacheSynced: true,
		online:      true,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if deps.Cache != nil {
		if err := s.attachCache(ctx, deps.Cache); err != nil {
			s.cancel()
			s.doc.Destroy()
			return nil, err
		}
	}

	s.unsubscribe = append(s.unsubscribe, s.doc.Observe(s.onDocUpdate))

	collaborative := cfg.Token != "" && deps.NewProvider != nil
	if !collaborative {
		// Без совместного редактирования сидируем сразу после загрузки кэша
		s.seed()
		s.mu.Lock()
		s.last = s.statusLocked()
		s.mu.Unlock()
		s.logger.Info("session opened", slog.Bool("collaborative", false))
		return s, nil
	}

	p := deps.NewProvider(s.doc)
	s.mu.Lock()
	s.provider = p
	s.connection = models.ConnectionConnecting
	s.last = s.statusLocked()
	s.mu.Unlock()

	s.unsubscribe = append(s.unsubscribe, p.Subscribe(s.onProviderEvent))
	if err := p.Connect(s.ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start provider: %w", err)
	}

	s.logger.Info("session opened", slog.Bool("collaborative", true))
	return s, nil
}

func (s *Session) attachCache(ctx context.Context, pages storage.PageStorage) error {
	cache, err := pages.OpenPage(ctx, s.cfg.PageID)
	if err != nil {
		return fmt.Errorf("failed to open page cache: %w", err)
	}

	updates, err := cache.Load(ctx)
	if err != nil {
		if cerr := cache.Close(); cerr != nil {
			s.logger.Warn("failed to close page cache", slog.Any("error", cerr))
		}
		return fmt.Errorf("failed to load page cache: %w", err)
	}

	// Воспроизводим кэш до подписки: эти обновления уже сохранены
	for _, u := range updates {
		if _, err := s.doc.Apply(u, crdt.OriginCache); err != nil {
			s.logger.Warn("skipping corrupted cache entry", slog.Any("error", err))
		}
	}

	s.cache = cache
	s.cacheSynced = cache.Synced()
	s.unsubscribe = append(s.unsubscribe, cache.OnSynced(s.onCacheSynced))
	s.logger.Debug("page cache replayed", slog.Int("updates", len(updates)))
	return nil
}

// seed заполняет пустой документ начальным снимком, не более одного раза
func (s *Session) seed() {
	s.mu.Lock()
	if s.initial == nil || s.seeded || s.closed {
		s.mu.Unlock()
		return
	}
	s.seeded = true
	initial := *s.initial
	s.mu.Unlock()

	seeded, err := s.doc.Seed(initial)
	if err != nil {
		s.logger.Error("failed to seed document", slog.Any("error", err))
		return
	}
	s.logger.Debug("seed evaluated", slog.Bool("seeded", seeded))
}

// Edit applies a local edit. Only local edits make the page dirty.
func (s *Session) Edit(fn func(tx *crdt.Txn) error) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	if err := s.doc.Transact(crdt.OriginLocal, fn); err != nil {
		if errors.Is(err, crdt.ErrDestroyed) {
			return ErrSessionClosed
		}
		return err
	}
	return nil
}

// Text returns the current plain text of the page
func (s *Session) Text() string {
	return s.doc.Text()
}

// Document returns the current document tree
func (s *Session) Document() models.Document {
	return s.doc.Document()
}

// Dirty reports whether local edits have not been saved to the backend yet
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dirty
}

// LastSaveError returns the error of the most recent save, nil after a success
func (s *Session) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSaveErr
}

// ConfirmLeave is the navigation guard: leaving a dirty page requires confirm
// to return true. Clean pages can always be left.
func (s *Session) ConfirmLeave(confirm func() bool) bool {
	if !s.Dirty() {
		return true
	}
	if confirm == nil {
		return false
	}
	return confirm()
}

// SetOnline feeds the network state reported by the host
func (s *Session) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.publishLocked()
}

// Status returns the current combined status
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.statusLocked()
}

// Subscribe registers fn for status changes. fn must not call back into
// the session synchronously with Close.
func (s *Session) Subscribe(fn func(Status)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Close tears the session down: stops the debounce timer, detaches from the
// document, closes the provider and the cache, waits for in-flight saves and
// destroys the document. Errors are logged, never returned.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.subscribers = make(map[int]func(Status))
	p := s.provider
	s.mu.Unlock()

	s.cancel()
	for _, fn := range unsubscribe {
		fn()
	}

	if p != nil {
		if err := p.Close(); err != nil {
			s.logger.Warn("failed to close provider", slog.Any("error", err))
		}
	}

	// Сохранение в полете сериализует документ: ждем его до Destroy
	s.wg.Wait()

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("failed to close page cache", slog.Any("error", err))
		}
	}

	s.doc.Destroy()
	s.logger.Info("session closed")
}

// onDocUpdate классифицирует обновление по origin
func (s *Session) onDocUpdate(u crdt.Update, origin crdt.Origin) {
	if origin == crdt.OriginCache {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if s.cache != nil {
		if err := s.cache.Append(u); err != nil {
			s.logger.Warn("failed to cache update", slog.Any("error", err))
		} else {
			s.cacheSynced = false
		}
	}

	// Только локальные правки делают страницу грязной и перезапускают таймер
	if origin.IsLocal() {
		s.dirty = true
		s.editGen++
		s.resetTimerLocked()
	}

	s.publishLocked()
}

func (s *Session) onCacheSynced() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.cacheSynced = s.cache.Synced()
	s.publishLocked()
}

func (s *Session) onProviderEvent(ev provider.Event) {
	if ev.Type == provider.EventSynced {
		s.seed()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.connection = s.provider.Connection()
	s.sync = s.provider.Sync()
	s.publishLocked()
}

// statusLocked. Caller holds s.mu.
func (s *Session) statusLocked() Status {
	st := Status{
		Connection:    s.connection,
		Sync:          s.sync,
		Collaborative: s.provider != nil,
		Online:        s.online,
		CacheSynced:   s.cacheSynced,
		Dirty:         s.dirty,
		Save:          models.SaveStateSaved,
	}
	switch {
	case s.saving:
		st.Save = models.SaveStateSaving
	case s.dirty:
		st.Save = models.SaveStateUnsaved
	}
	st.Label = ProjectLabel(st)
	return st
}

// publishLocked releases s.mu and notifies subscribers if the status changed
func (s *Session) publishLocked() {
	st := s.statusLocked()
	if st == s.last {
		s.mu.Unlock()
		return
	}
	s.last = st

	keys := make([]int, 0, len(s.subscribers))
	for key := range s.subscribers {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	subscribers := make([]func(Status), 0, len(keys))
	for _, key := range keys {
		subscribers = append(subscribers, s.subscribers[key])
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(st)
	}
}
