package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/pagecollab/internal/models"
	"github.com/iudanet/pagecollab/internal/server/storage"
)

// SavePage stores a new snapshot of the page and bumps its version
func (s *Storage) SavePage(ctx context.Context, page *models.Page) (*models.Page, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var version int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM pages WHERE id = ?`, page.ID).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read page version: %w", err)
	}

	saved := *page
	saved.Version = version + 1
	saved.ETag = models.ContentDigest(page.Content)
	if saved.UpdatedAt.IsZero() {
		saved.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO pages (id, workspace_id, content, etag, version, updated_by, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			content = excluded.content,
			etag = excluded.etag,
			version = excluded.version,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`

	_, err = tx.ExecContext(ctx, query,
		saved.ID,
		saved.WorkspaceID,
		saved.Content,
		saved.ETag,
		saved.Version,
		saved.UpdatedBy,
		saved.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save page: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit page: %w", err)
	}

	saved.UpdatedAt = time.UnixMilli(saved.UpdatedAt.UnixMilli())
	return &saved, nil
}

// GetPage retrieves the latest snapshot of the page
func (s *Storage) GetPage(ctx context.Context, id string) (*models.Page, error) {
	query := `
		SELECT id, workspace_id, content, etag, version, updated_by, updated_at
		FROM pages
		WHERE id = ?
	`

	page := &models.Page{}
	var updatedAt int64

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&page.ID,
		&page.WorkspaceID,
		&page.Content,
		&page.ETag,
		&page.Version,
		&page.UpdatedBy,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	page.UpdatedAt = time.UnixMilli(updatedAt)
	return page, nil
}
