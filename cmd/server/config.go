package main

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

// Config конфигурация сервера. Флаги имеют приоритет над переменными окружения
type Config struct {
	Addr       string
	DBPath     string
	JWTSecret  string
	RedisURL   string // пустой URL отключает fan-out между инстансами
	LogLevel   string
	TokenTTL   time.Duration
	RateWindow time.Duration
	RateLimit  int
}

// parseConfig разбирает флаги fs с дефолтами из окружения
func parseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.Addr, "addr", getenv("PAGECOLLAB_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", getenv("PAGECOLLAB_DB", "pagecollab.db"), "Path to sqlite database")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", getenv("PAGECOLLAB_JWT_SECRET", ""), "Secret for collaboration tokens")
	fs.StringVar(&cfg.RedisURL, "redis", getenv("REDIS_URL", ""), "Redis URL for cross-instance fan-out")
	fs.StringVar(&cfg.LogLevel, "log-level", getenv("PAGECOLLAB_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", getenvDuration("PAGECOLLAB_TOKEN_TTL", 12*time.Hour), "Collaboration token lifetime")
	fs.IntVar(&cfg.RateLimit, "rate-limit", getenvInt("PAGECOLLAB_RATE_LIMIT", 120), "Requests per user or IP per window")
	fs.DurationVar(&cfg.RateWindow, "rate-window", getenvDuration("PAGECOLLAB_RATE_WINDOW", time.Minute), "Rate limit window")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("jwt secret is required (-jwt-secret or PAGECOLLAB_JWT_SECRET)")
	}
	if cfg.RateLimit <= 0 || cfg.RateWindow <= 0 {
		return Config{}, errors.New("rate limit and window must be positive")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
