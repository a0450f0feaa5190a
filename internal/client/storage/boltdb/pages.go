package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/iudanet/pagecollab/internal/client/storage"
	"github.com/iudanet/pagecollab/internal/crdt"
)

// OpenPage acquires the update log of pageID and starts its writer.
// A page can be open only once per Storage.
func (s *Storage) OpenPage(ctx context.Context, pageID string) (storage.PageCache, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	s.mu.Lock()
	if _, ok := s.open[pageID]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", storage.ErrPageLocked, pageID)
	}
	s.open[pageID] = struct{}{}
	s.mu.Unlock()

	cache := &pageCache{
		db:        s.db,
		logger:    s.logger.With(slog.String("page_id", pageID)),
		release:   func() { s.release(pageID) },
		pageID:    pageID,
		threshold: s.compactThreshold,
		observers: make(map[int]func()),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go cache.run()

	return cache, nil
}

// ListPages returns identifiers of all cached pages
func (s *Storage) ListPages(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var pages []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPages)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			// Вложенные buckets имеют nil value
			if v == nil {
				pages = append(pages, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	sort.Strings(pages)
	return pages, nil
}

func (s *Storage) release(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, pageID)
}

// pageCache пишет обновления страницы в фоне одним writer'ом
type pageCache struct {
	db        *bbolt.DB
	logger    *slog.Logger
	release   func()
	observers map[int]func()
	wake      chan struct{}
	done      chan struct{}
	lastErr   error
	pageID    string
	queue     []crdt.Update
	threshold int
	inflight  int
	nextObs   int
	mu        sync.Mutex
	closed    bool
}

// Load returns the stored updates in append order
func (c *pageCache) Load(ctx context.Context) ([]crdt.Update, error) {
	var updates []crdt.Update

	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := pageBucket(tx, c.pageID)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			u, err := crdt.DecodeUpdate(v)
			if err != nil {
				return fmt.Errorf("entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			updates = append(updates, u)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load page %s: %w", c.pageID, err)
	}

	return updates, nil
}

// Append queues an update for the writer
func (c *pageCache) Append(u crdt.Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return storage.ErrStorageClosed
	}
	if u.IsEmpty() {
		return nil
	}

	c.queue = append(c.queue, u)
	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Synced reports whether the queue is fully written
func (c *pageCache) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue) == 0 && c.inflight == 0
}

// OnSynced registers fn for queue-drained events
func (c *pageCache) OnSynced(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Close flushes the queue, stops the writer and releases the page
func (c *pageCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.wake)
	c.mu.Unlock()

	<-c.done
	c.release()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = make(map[int]func())
	if len(c.queue) > 0 {
		return fmt.Errorf("failed to flush %d updates of page %s: %w", len(c.queue), c.pageID, c.lastErr)
	}
	return nil
}

func (c *pageCache) run() {
	defer close(c.done)

	for range c.wake {
		c.flush()
	}
	// Финальная попытка после Close
	c.flush()
}

func (c *pageCache) flush() {
	c.mu.Lock()
	batch := c.queue
	c.queue = nil
	c.inflight = len(batch)
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	err := c.write(batch)

	c.mu.Lock()
	c.inflight = 0
	if err != nil {
		// Возвращаем batch в начало очереди, повтор при следующем Append или Close
		c.queue = append(batch, c.queue...)
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Error("failed to write page updates",
			slog.Int("updates", len(batch)),
			slog.Any("error", err))
		return
	}

	var observers []func()
	if len(c.queue) == 0 {
		keys := make([]int, 0, len(c.observers))
		for key := range c.observers {
			keys = append(keys, key)
		}
		sort.Ints(keys)
		for _, key := range keys {
			observers = append(observers, c.observers[key])
		}
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}

func (c *pageCache) write(batch []crdt.Update) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		pages := tx.Bucket(bucketPages)
		if pages == nil {
			return fmt.Errorf("pages bucket not found")
		}
		bucket, err := pages.CreateBucketIfNotExists([]byte(c.pageID))
		if err != nil {
			return fmt.Errorf("failed to create page bucket: %w", err)
		}

		for _, u := range batch {
			if err := putUpdate(bucket, u); err != nil {
				return err
			}
		}

		if countKeys(bucket) > c.threshold {
			return c.compact(pages)
		}
		return nil
	})
}

// compact заменяет журнал страницы одним обновлением с полным состоянием
func (c *pageCache) compact(pages *bbolt.Bucket) error {
	bucket := pages.Bucket([]byte(c.pageID))

	doc := crdt.NewDoc("")
	defer doc.Destroy()

	entries := 0
	err := bucket.ForEach(func(k, v []byte) error {
		u, err := crdt.DecodeUpdate(v)
		if err != nil {
			return fmt.Errorf("failed to decode entry: %w", err)
		}
		entries++
		_, err = doc.Apply(u, crdt.OriginCache)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to replay page log: %w", err)
	}

	if err := pages.DeleteBucket([]byte(c.pageID)); err != nil {
		return fmt.Errorf("failed to drop page log: %w", err)
	}
	bucket, err = pages.CreateBucket([]byte(c.pageID))
	if err != nil {
		return fmt.Errorf("failed to recreate page log: %w", err)
	}
	if err := putUpdate(bucket, doc.EncodeState()); err != nil {
		return err
	}

	c.logger.Debug("page log compacted", slog.Int("entries", entries))
	return nil
}

func putUpdate(bucket *bbolt.Bucket, u crdt.Update) error {
	data, err := u.Encode()
	if err != nil {
		return err
	}

	seq, err := bucket.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	if err := bucket.Put(key, data); err != nil {
		return fmt.Errorf("failed to save update: %w", err)
	}
	return nil
}

func countKeys(bucket *bbolt.Bucket) int {
	n := 0
	cursor := bucket.Cursor()
	for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
		n++
	}
	return n
}

func pageBucket(tx *bbolt.Tx, pageID string) *bbolt.Bucket {
	pages := tx.Bucket(bucketPages)
	if pages == nil {
		return nil
	}
	return pages.Bucket([]byte(pageID))
}
