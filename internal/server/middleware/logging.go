package middleware

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// redactedParams параметры запроса, которые не попадают в лог
var redactedParams = []string{"token", "access_token"}

// responseWriter запоминает статус и размер ответа для лога
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
	hijacked   bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack передает соединение websocket upgrader'у
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	conn, buf, err := hj.Hijack()
	if err == nil {
		rw.statusCode = http.StatusSwitchingProtocols
		rw.hijacked = true
	}
	return conn, buf, err
}

// Unwrap returns the wrapped writer for http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware логирует каждый запрос после его завершения. Для
// websocket соединений запись появляется при закрытии сессии, duration_ms
// тогда равна времени жизни соединения. Токены из query не логируются.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			msg := "HTTP request"
			if wrapped.hijacked {
				msg = "websocket session closed"
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.Int("status", wrapped.statusCode),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int64("bytes_written", wrapped.written),
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", redactQuery(r.URL.Query())))
			}

			logger.LogAttrs(r.Context(), level, msg, attrs...)
		})
	}
}

// redactQuery кодирует query обратно, заменяя значения токенов на REDACTED
func redactQuery(query url.Values) string {
	for _, param := range redactedParams {
		if query.Has(param) {
			query.Set(param, "REDACTED")
		}
	}
	return query.Encode()
}

// LoggingWithSkip не логирует запросы к skipPaths (health checks)
func LoggingWithSkip(logger *slog.Logger, skipPaths []string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		logged := LoggingMiddleware(logger)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			logged.ServeHTTP(w, r)
		})
	}
}
