package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/iudanet/pagecollab/internal/client/storage"
	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/validation"
)

// runShow печатает страницу из локального кэша, не подключаясь к серверу
func (c *Cli) runShow(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing page. Usage: pagecollab show <page>")
	}
	pageID := args[0]
	if err := validation.ValidatePageID(pageID); err != nil {
		return err
	}

	cache, err := c.pages.OpenPage(ctx, pageID)
	if err != nil {
		if errors.Is(err, storage.ErrPageLocked) {
			return fmt.Errorf("page %s is open for editing", pageID)
		}
		return fmt.Errorf("failed to open page cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			c.logger.Warn("failed to close page cache", slog.String("page_id", pageID), slog.Any("error", err))
		}
	}()

	updates, err := cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}
	if len(updates) == 0 {
		return fmt.Errorf("page %s is not cached on this device", pageID)
	}

	doc := crdt.NewDoc(uuid.NewString())
	defer doc.Destroy()
	for _, u := range updates {
		if _, err := doc.Apply(u, crdt.OriginCache); err != nil {
			return fmt.Errorf("failed to replay page: %w", err)
		}
	}

	c.io.Println(Render(doc.Document()))
	return nil
}
