package cli

import (
	"context"
	"fmt"
	"time"
)

// runPages выводит страницы из локального кэша и время их последнего сохранения
func (c *Cli) runPages(ctx context.Context) error {
	pageIDs, err := c.pages.ListPages(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pages: %w", err)
	}

	c.io.Println("=== Cached Pages ===")
	c.io.Println()

	if len(pageIDs) == 0 {
		c.io.Println("No pages cached on this device.")
		return nil
	}

	for _, pageID := range pageIDs {
		saved := "never saved"
		if c.meta != nil {
			at, err := c.meta.GetLastSaved(ctx, pageID)
			if err != nil {
				return fmt.Errorf("failed to get save time of %s: %w", pageID, err)
			}
			if !at.IsZero() {
				saved = "saved " + at.Local().Format(time.RFC3339)
			}
		}
		c.io.Printf("%-32s %s\n", pageID, saved)
	}

	c.io.Println()
	c.io.Printf("Total: %d page(s)\n", len(pageIDs))
	return nil
}
