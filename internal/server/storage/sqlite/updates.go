package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/pagecollab/internal/models"
)

// AppendUpdate adds an update to the end of the page log
func (s *Storage) AppendUpdate(ctx context.Context, entry *models.UpdateEntry) (int64, error) {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO page_updates (page_id, client_id, payload, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entry.PageID,
		entry.ClientID,
		entry.Payload,
		createdAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append update: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get update sequence: %w", err)
	}

	return seq, nil
}

// ListUpdates returns the updates of a page with Seq greater than after
func (s *Storage) ListUpdates(ctx context.Context, pageID string, after int64) ([]*models.UpdateEntry, error) {
	query := `
		SELECT seq, page_id, client_id, payload, created_at
		FROM page_updates
		WHERE page_id = ? AND seq > ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, pageID, after)
	if err != nil {
		return nil, fmt.Errorf("failed to query updates: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.UpdateEntry, 0)
	for rows.Next() {
		entry := &models.UpdateEntry{}
		var createdAt int64

		if err := rows.Scan(&entry.Seq, &entry.PageID, &entry.ClientID, &entry.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan update: %w", err)
		}

		entry.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating updates: %w", err)
	}

	return entries, nil
}

// CountUpdates returns the number of log entries of a page
func (s *Storage) CountUpdates(ctx context.Context, pageID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_updates WHERE page_id = ?`, pageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count updates: %w", err)
	}
	return count, nil
}

// CompactUpdates replaces every entry of the page up to and including upTo
// with a single entry holding payload. The new entry keeps sequence upTo so
// later entries stay ordered after it.
func (s *Storage) CompactUpdates(ctx context.Context, pageID string, upTo int64, payload []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM page_updates WHERE page_id = ? AND seq <= ?`, pageID, upTo); err != nil {
		return fmt.Errorf("failed to delete compacted updates: %w", err)
	}

	query := `
		INSERT INTO page_updates (seq, page_id, client_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, upTo, pageID, "", payload, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert compacted update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit compaction: %w", err)
	}

	return nil
}
