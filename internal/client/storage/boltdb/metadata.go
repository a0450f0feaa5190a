package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/pagecollab/internal/client/storage"
)

const (
	keyLastSavedPrefix = "last_saved:"
)

// SaveLastSaved saves the time of the last successful backend save of a page
func (s *Storage) SaveLastSaved(ctx context.Context, pageID string, at time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Конвертируем время в bytes (unix nano)
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(at.UnixNano()))

		if err := bucket.Put([]byte(keyLastSavedPrefix+pageID), value); err != nil {
			return fmt.Errorf("failed to save last saved time: %w", err)
		}

		return nil
	})
}

// GetLastSaved retrieves the time of the last successful backend save.
// Returns zero time if the page has never been saved from this device.
func (s *Storage) GetLastSaved(ctx context.Context, pageID string) (time.Time, error) {
	if s.db == nil {
		return time.Time{}, storage.ErrStorageClosed
	}

	var at time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		value := bucket.Get([]byte(keyLastSavedPrefix + pageID))
		if value == nil {
			// Страница еще не сохранялась с этого устройства
			return nil
		}

		at = time.Unix(0, int64(binary.BigEndian.Uint64(value)))
		return nil
	})

	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last saved time: %w", err)
	}

	return at, nil
}
