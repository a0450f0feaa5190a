package boltdb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketPages    = []byte("pages")
	bucketMetadata = []byte("metadata")
)

// DefaultCompactThreshold is the number of stored updates after which
// a page log is replaced by a single state update.
const DefaultCompactThreshold = 200

// Option configures Storage
type Option func(*Storage)

// WithCompactThreshold overrides DefaultCompactThreshold
func WithCompactThreshold(n int) Option {
	return func(s *Storage) {
		if n > 0 {
			s.compactThreshold = n
		}
	}
}

// WithLogger sets the logger used by background page writers
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db               *bbolt.DB
	logger           *slog.Logger
	open             map[string]struct{} // страницы, открытые в этом процессе
	compactThreshold int
	mu               sync.Mutex
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	// Открываем BoltDB. Timeout не дает второму процессу висеть на file lock
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{
		db:               db,
		logger:           slog.Default(),
		open:             make(map[string]struct{}),
		compactThreshold: DefaultCompactThreshold,
	}
	for _, opt := range opts {
		opt(storage)
	}

	// Инициализируем buckets
	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		// Bucket для журналов страниц (вложенный bucket на страницу)
		if _, err := tx.CreateBucketIfNotExists(bucketPages); err != nil {
			return fmt.Errorf("failed to create pages bucket: %w", err)
		}

		// Bucket для метаданных
		if _, err := tx.CreateBucketIfNotExists(bucketMetadata); err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}

		return nil
	})
}
