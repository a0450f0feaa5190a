package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/pagecollab/internal/server/handlers"
	"github.com/iudanet/pagecollab/internal/server/middleware"
	"github.com/iudanet/pagecollab/internal/server/relay"
	"github.com/iudanet/pagecollab/internal/server/storage/sqlite"
	"github.com/iudanet/pagecollab/internal/validation"
	"github.com/iudanet/pagecollab/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "token":
			if err := runToken(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "-version", "--version", "version":
			printVersion()
			return
		}
	}

	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// run поднимает хранилище, relay и HTTP сервер и ждет отмены ctx
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	db, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", slog.Any("error", err))
		}
	}()

	hubCfg := relay.Config{Log: db, Logger: logger}
	if cfg.RedisURL != "" {
		broker, err := relay.NewRedisBroker(ctx, cfg.RedisURL, "", logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		hubCfg.Broker = broker
	}
	hub := relay.NewHub(hubCfg)
	// Подписка живет до отмены ctx
	if err := hub.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := hub.Close(); err != nil {
			logger.Warn("failed to close relay hub", slog.Any("error", err))
		}
	}()

	jwtConfig := handlers.JWTConfig{Secret: []byte(cfg.JWTSecret), TokenTTL: cfg.TokenTTL}
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, nil, logger)
	defer limiter.Stop()

	healthHandler := handlers.NewHealthHandler(logger, Version, db, hub)
	pagesHandler := handlers.NewPagesHandler(logger, db)
	collabHandler := handlers.NewCollabHandler(logger, hub, nil)

	auth := middleware.AuthMiddleware(logger, jwtConfig)
	rateLimit := middleware.RateLimitMiddleware(limiter, logger)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(rateLimit(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("GET /api/v1/pages/{id}", protected(pagesHandler.GetPage))
	mux.Handle("PUT /api/v1/pages/{id}", protected(pagesHandler.SavePage))
	mux.Handle("GET /api/v1/pages/{id}/collab", protected(collabHandler.HandleCollab))

	var handler http.Handler = mux
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", cfg.Addr),
			slog.String("version", Version),
			slog.Bool("fan_out", hubCfg.Broker != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// runToken выдает токен совместного редактирования страницы
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "User ID")
	userName := fs.String("name", "", "Display name shown next to the cursor")
	pageID := fs.String("page", "", "Page ID")
	secret := fs.String("jwt-secret", getenv("PAGECOLLAB_JWT_SECRET", ""), "Secret for collaboration tokens")
	ttl := fs.Duration("ttl", getenvDuration("PAGECOLLAB_TOKEN_TTL", 12*time.Hour), "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *secret == "" {
		return errors.New("jwt secret is required")
	}
	if *userID == "" {
		return errors.New("user is required")
	}
	if err := validation.ValidatePageID(*pageID); err != nil {
		return err
	}
	name := *userName
	if name == "" {
		name = *userID
	}
	if err := validation.ValidateDisplayName(name); err != nil {
		return err
	}

	token, expiresIn, err := handlers.GenerateCollabToken(
		handlers.JWTConfig{Secret: []byte(*secret), TokenTTL: *ttl}, *userID, name, *pageID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(api.TokenResponse{Token: token, PageID: *pageID, ExpiresIn: expiresIn})
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func printVersion() {
	fmt.Printf("pagecollab server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
