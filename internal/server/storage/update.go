package storage

import (
	"context"

	"github.com/iudanet/pagecollab/internal/models"
)

// UpdateLog defines interface for the per-page log of collaboration updates
type UpdateLog interface {
	// AppendUpdate adds an update to the end of the page log
	// Returns the assigned sequence number
	AppendUpdate(ctx context.Context, entry *models.UpdateEntry) (int64, error)

	// ListUpdates returns the updates of a page with Seq greater than after,
	// ordered by Seq. Returns empty slice if no updates found
	ListUpdates(ctx context.Context, pageID string, after int64) ([]*models.UpdateEntry, error)

	// CountUpdates returns the number of log entries of a page
	CountUpdates(ctx context.Context, pageID string) (int, error)

	// CompactUpdates replaces every entry of the page up to and including
	// upTo with a single entry holding payload
	CompactUpdates(ctx context.Context, pageID string, upTo int64, payload []byte) error
}
