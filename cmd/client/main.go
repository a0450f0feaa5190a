package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/pagecollab/internal/client/api"
	"github.com/iudanet/pagecollab/internal/client/cli"
	"github.com/iudanet/pagecollab/internal/client/iocli"
	"github.com/iudanet/pagecollab/internal/client/session"
	"github.com/iudanet/pagecollab/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", getenv("PAGECOLLAB_SERVER", "http://localhost:8080"), "Server URL")
	dbPath := flag.String("db", getenv("PAGECOLLAB_CACHE", "pagecollab-client.db"), "Path to local page cache")
	token := flag.String("token", "", "Collaboration token")
	tokenFile := flag.String("token-file", "", "Path to file containing the collaboration token")
	name := flag.String("name", "", "Name shown next to your cursor")
	debounce := flag.Duration("debounce", session.DefaultDebounce, "Autosave delay after the last edit")
	verbose := flag.Bool("verbose", false, "Log debug messages to stderr")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	collabToken, err := cli.ResolveToken(cli.TokenSources{FromFile: *tokenFile, FromArgs: *token})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Открываем BoltDB кэш страниц
	boltStorage, err := boltdb.New(ctx, *dbPath, boltdb.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	host := cli.New(iocli.NewStdio(), boltStorage, boltStorage, api.NewClient(*serverURL), cli.Options{
		ServerURL: *serverURL,
		Token:     collabToken,
		Name:      *name,
		Debounce:  *debounce,
	}, logger)

	runErr := host.Run(ctx, args[0], args[1:])

	if err := boltStorage.Close(); err != nil {
		logger.Error("failed to close database", slog.Any("error", err))
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func printVersion() {
	fmt.Printf("pagecollab client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Autosave:   %s after the last edit\n", session.DefaultDebounce.Round(time.Millisecond))
}
