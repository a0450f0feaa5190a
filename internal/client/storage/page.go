package storage

import (
	"context"

	"github.com/iudanet/pagecollab/internal/crdt"
)

//go:generate moq -out pagecache_mock.go . PageCache

// PageCache is the on-device update log of one open page.
// Exactly one PageCache per page may be open in a process.
type PageCache interface {
	// Load returns the stored updates in append order.
	Load(ctx context.Context) ([]crdt.Update, error)

	// Append queues an update for asynchronous persistence.
	// Returns ErrStorageClosed after Close.
	Append(u crdt.Update) error

	// Synced reports whether every appended update has been written.
	Synced() bool

	// OnSynced registers fn to be called each time the write queue drains.
	// The returned function unregisters it.
	OnSynced(fn func()) func()

	// Close flushes queued updates and releases the page.
	Close() error
}

//go:generate moq -out pagestorage_mock.go . PageStorage

// PageStorage opens page caches
type PageStorage interface {
	// OpenPage acquires the cache for pageID.
	// Returns ErrPageLocked if the page is already open.
	OpenPage(ctx context.Context, pageID string) (PageCache, error)

	// ListPages returns identifiers of all cached pages
	ListPages(ctx context.Context) ([]string, error)
}
