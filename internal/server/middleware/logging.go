package middleware

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID возвращает идентификатор запроса из контекста
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// responseWriter оборачивает http.ResponseWriter и запоминает статус и размер ответа
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

// Hijack нужен для апгрейда соединения до WebSocket
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	conn, brw, err := hj.Hijack()
	if err == nil {
		rw.hijacked = true
		rw.statusCode = http.StatusSwitchingProtocols
	}
	return conn, brw, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap для http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// withRequestID берет идентификатор запроса из заголовка или создает новый,
// кладет его в контекст и в заголовок ответа
func withRequestID(w http.ResponseWriter, r *http.Request) *http.Request {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)
	return r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))
}

// LoggingMiddleware логирует метод, путь, статус, длительность и размер ответа.
// Токены из query в лог не попадают.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			r = withRequestID(w, r)
			requestID := RequestID(r.Context())

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			logLevel := slog.LevelInfo
			if wrapped.statusCode >= 500 {
				logLevel = slog.LevelError
			} else if wrapped.statusCode >= 400 {
				logLevel = slog.LevelWarn
			}

			attrs := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"bytes_written", wrapped.written,
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", sanitizeQuery(r.URL.Query()))
			}
			if wrapped.hijacked {
				attrs = append(attrs, "upgraded", true)
			}

			logger.Log(r.Context(), logLevel, "HTTP request", attrs...)
		})
	}
}

// sensitiveParams query-параметры, значения которых заменяются на ***
var sensitiveParams = map[string]bool{
	AccessTokenQueryParam: true,
	"refresh_token":       true,
	"token":               true,
}

// sanitizeQuery кодирует query, скрывая значения токенов
func sanitizeQuery(q url.Values) string {
	for key := range q {
		if sensitiveParams[key] {
			q.Set(key, "***")
		}
	}
	return q.Encode()
}

// LoggingWithSkip пропускает логирование для перечисленных путей (health checks).
// Идентификатор запроса выставляется и для них.
func LoggingWithSkip(logger *slog.Logger, skipPaths []string) func(http.Handler) http.Handler {
	skipMap := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skipMap[path] = true
	}

	return func(next http.Handler) http.Handler {
		logged := LoggingMiddleware(logger)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipMap[r.URL.Path] {
				next.ServeHTTP(w, withRequestID(w, r))
				return
			}
			logged.ServeHTTP(w, r)
		})
	}
}
