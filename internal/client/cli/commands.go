package cli

import (
	"context"
	"fmt"
)

// Run выполняет команду хоста
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "open":
		return c.runOpen(ctx, args)
	case "show":
		return c.runShow(ctx, args)
	case "pages":
		return c.runPages(ctx)
	case "help":
		PrintUsage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}
