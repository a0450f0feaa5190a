package storage

import (
	"context"
	"time"
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastSaved saves the time of the last successful backend save of a page
	SaveLastSaved(ctx context.Context, pageID string, at time.Time) error

	// GetLastSaved retrieves the time of the last successful backend save.
	// Returns zero time if the page has never been saved from this device.
	GetLastSaved(ctx context.Context, pageID string) (time.Time, error)
}
