package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/iudanet/pagecollab/internal/server/handlers"
)

// RateLimiter ограничивает частоту запросов по ключу (пользователь или IP).
// Каждый ключ получает rate запросов на окно window.
type RateLimiter struct {
	clock   clock.Clock
	buckets map[string]*bucket
	logger  *slog.Logger
	stopC   chan struct{}
	rate    int
	window  time.Duration
	mu      sync.Mutex
	stopped sync.Once
}

// bucket представляет окно конкретного ключа
type bucket struct {
	windowStart time.Time
	tokens      int
}

// NewRateLimiter создает rate limiter и запускает очистку неактивных ключей.
// clk nil означает системные часы
func NewRateLimiter(rate int, window time.Duration, clk clock.Clock, logger *slog.Logger) *RateLimiter {
	if clk == nil {
		clk = clock.New()
	}

	rl := &RateLimiter{
		clock:   clk,
		buckets: make(map[string]*bucket),
		logger:  logger,
		stopC:   make(chan struct{}),
		rate:    rate,
		window:  window,
	}

	go rl.cleanup(clk.Ticker(window * 2))

	return rl
}

func (rl *RateLimiter) cleanup(ticker *clock.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldBuckets()
		case <-rl.stopC:
			return
		}
	}
}

// cleanupOldBuckets удаляет ключи, окно которых закончилось больше window назад
func (rl *RateLimiter) cleanupOldBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window*2 {
			delete(rl.buckets, key)
		}
	}
}

// Stop останавливает очистку. Повторный вызов безопасен
func (rl *RateLimiter) Stop() {
	rl.stopped.Do(func() { close(rl.stopC) })
}

// Allow расходует один запрос ключа и сообщает, укладывается ли он в лимит
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	b, exists := rl.buckets[key]
	if !exists || now.Sub(b.windowStart) >= rl.window {
		b = &bucket{tokens: rl.rate, windowStart: now}
		rl.buckets[key] = b
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// RateLimitMiddleware отклоняет запросы сверх лимита с 429.
// За AuthMiddleware ключом служит пользователь токена, иначе IP клиента
func RateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)

			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", retryAfter(limiter.window))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too Many Requests","message":"rate limit exceeded, please try again later"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(window time.Duration) string {
	seconds := int(window.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

// clientKey возвращает ключ лимита запроса
func clientKey(r *http.Request) string {
	if claims, ok := handlers.GetClaims(r.Context()); ok {
		return "user:" + claims.UserID
	}
	return "ip:" + getClientIP(r)
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	// Первый адрес X-Forwarded-For это реальный клиент
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
