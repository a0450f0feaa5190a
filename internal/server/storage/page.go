package storage

import (
	"context"

	"github.com/iudanet/pagecollab/internal/models"
)

// PageStorage defines interface for page snapshot persistence
type PageStorage interface {
	// SavePage stores a new snapshot of the page.
	// Version is incremented by the storage, UpdatedAt and ETag are filled in.
	// Returns the stored snapshot
	SavePage(ctx context.Context, page *models.Page) (*models.Page, error)

	// GetPage retrieves the latest snapshot of the page
	// Returns ErrPageNotFound if the page was never saved
	GetPage(ctx context.Context, id string) (*models.Page, error)
}
