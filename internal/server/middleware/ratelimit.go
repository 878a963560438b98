package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter ограничивает число запросов с одного ключа (обычно IP) за окно
type RateLimiter struct {
	buckets map[string]*bucket
	logger  *slog.Logger
	now     func() time.Time
	rate    int
	window  time.Duration
	mu      sync.Mutex
}

// bucket счетчик для конкретного ключа
type bucket struct {
	windowStart time.Time
	tokens      int
}

// NewRateLimiter создает rate limiter: rate запросов за window
func NewRateLimiter(rate int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени (для тестов)
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// Allow списывает токен для ключа. Если токенов нет, возвращает время до начала нового окна.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowStart) >= rl.window {
		b = &bucket{tokens: rl.rate, windowStart: now}
		rl.buckets[key] = b
	}

	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}
	return false, b.windowStart.Add(rl.window).Sub(now)
}

// Cleanup удаляет buckets, окно которых истекло
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) >= rl.window {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Len количество отслеживаемых ключей
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Run периодически вызывает Cleanup до отмены контекста
func (rl *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := rl.Cleanup(); n > 0 {
				rl.logger.Debug("Rate limiter buckets cleaned up", "removed", n)
			}
		}
	}
}

// Middleware ограничивает запросы по IP клиента
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.admit(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// admit проверяет лимит и при отказе сам пишет ответ 429
func (rl *RateLimiter) admit(w http.ResponseWriter, r *http.Request) bool {
	key := getClientIP(r)
	ok, retryAfter := rl.Allow(key)
	if ok {
		return true
	}

	rl.logger.Warn("Rate limit exceeded",
		"ip", key,
		"method", r.Method,
		"path", r.URL.Path,
	)

	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	writeError(rl.logger, w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
	return false
}

// PathRateLimit отдельный лимит для пути
type PathRateLimit struct {
	Path   string
	Rate   int
	Window time.Duration
}

// PathLimiter применяет лимиты по точному совпадению пути, остальным путям - лимит по умолчанию
type PathLimiter struct {
	limiters map[string]*RateLimiter
	fallback *RateLimiter
}

// NewPathLimiter создает набор лимитеров
func NewPathLimiter(limits []PathRateLimit, defaultRate int, defaultWindow time.Duration, logger *slog.Logger) *PathLimiter {
	pl := &PathLimiter{
		limiters: make(map[string]*RateLimiter, len(limits)),
		fallback: NewRateLimiter(defaultRate, defaultWindow, logger),
	}
	for _, limit := range limits {
		pl.limiters[limit.Path] = NewRateLimiter(limit.Rate, limit.Window, logger)
	}
	return pl
}

// WithClock подменяет источник времени во всех лимитерах
func (pl *PathLimiter) WithClock(now func() time.Time) *PathLimiter {
	pl.fallback.WithClock(now)
	for _, l := range pl.limiters {
		l.WithClock(now)
	}
	return pl
}

// Middleware выбирает лимитер по пути запроса
func (pl *PathLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter, ok := pl.limiters[r.URL.Path]
			if !ok {
				limiter = pl.fallback
			}
			if !limiter.admit(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Run запускает очистку всех лимитеров до отмены контекста
func (pl *PathLimiter) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	run := func(l *RateLimiter) {
		defer wg.Done()
		_ = l.Run(ctx)
	}
	wg.Add(1 + len(pl.limiters))
	go run(pl.fallback)
	for _, l := range pl.limiters {
		go run(l)
	}
	wg.Wait()
	return nil
}

// getClientIP извлекает IP клиента. Учитывает X-Forwarded-For и X-Real-IP от прокси.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
