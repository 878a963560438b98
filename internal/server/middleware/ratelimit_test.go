package middleware

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock управляемое время
type testClock struct {
	now time.Time
	mu  sync.Mutex
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})
}

func doFrom(handler http.Handler, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("Requests over limit are denied", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute, discardLogger())

		for i := 0; i < 3; i++ {
			allowed, _ := limiter.Allow("192.168.1.2")
			assert.True(t, allowed, fmt.Sprintf("request %d should be allowed", i+1))
		}

		allowed, _ := limiter.Allow("192.168.1.2")
		assert.False(t, allowed, "request over limit should be denied")
	})

	t.Run("Different keys are tracked separately", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute, discardLogger())

		ok1, _ := limiter.Allow("192.168.1.1")
		ok2, _ := limiter.Allow("192.168.1.2")
		assert.True(t, ok1)
		assert.True(t, ok2)

		ok1, _ = limiter.Allow("192.168.1.1")
		assert.False(t, ok1, "key1 over limit")
		assert.Equal(t, 2, limiter.Len())
	})

	t.Run("Tokens refill after window expires", func(t *testing.T) {
		clock := newTestClock()
		limiter := NewRateLimiter(2, time.Minute, discardLogger()).WithClock(clock.Now)

		limiter.Allow("k")
		limiter.Allow("k")

		clock.Advance(20 * time.Second)
		allowed, retryAfter := limiter.Allow("k")
		assert.False(t, allowed, "should be rate limited")
		assert.Equal(t, 40*time.Second, retryAfter)

		clock.Advance(40 * time.Second)
		allowed, _ = limiter.Allow("k")
		assert.True(t, allowed, "tokens should be refilled")
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	clock := newTestClock()
	limiter := NewRateLimiter(2, time.Minute, discardLogger()).WithClock(clock.Now)
	handler := limiter.Middleware()(okHandler())

	for i := 0; i < 2; i++ {
		w := doFrom(handler, http.MethodPost, "/api/v1/auth/login", "192.168.1.2:12345")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "success", w.Body.String())
	}

	// другой порт того же хоста делит лимит
	w := doFrom(handler, http.MethodPost, "/api/v1/auth/login", "192.168.1.2:40000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	w = doFrom(handler, http.MethodPost, "/api/v1/auth/login", "10.0.0.9:12345")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		expectedIP string
	}{
		{
			name:       "X-Forwarded-For with single IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "X-Forwarded-For with multiple IPs",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1, 10.0.0.2, 10.0.0.3",
			expectedIP: "192.168.1.1",
		},
		{
			name:       "X-Real-IP when X-Forwarded-For is empty",
			remoteAddr: "10.0.0.1:12345",
			xRealIP:    "192.168.2.1",
			expectedIP: "192.168.2.1",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.168.3.1:54321",
			expectedIP: "192.168.3.1",
		},
		{
			name:       "RemoteAddr that is not host:port",
			remoteAddr: "pipe",
			expectedIP: "pipe",
		},
		{
			name:       "X-Forwarded-For takes precedence over X-Real-IP",
			remoteAddr: "10.0.0.1:12345",
			xff:        "192.168.1.1",
			xRealIP:    "192.168.2.1",
			expectedIP: "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.expectedIP, getClientIP(req))
		})
	}
}

func TestPathLimiter(t *testing.T) {
	limits := []PathRateLimit{
		{Path: "/api/v1/auth/login", Rate: 2, Window: time.Minute},
		{Path: "/api/v1/auth/register", Rate: 1, Window: time.Minute},
	}
	handler := NewPathLimiter(limits, 10, time.Minute, discardLogger()).Middleware()(okHandler())

	t.Run("Login endpoint has custom limit", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			assert.Equal(t, http.StatusOK, doFrom(handler, http.MethodPost, "/api/v1/auth/login", "192.168.1.1:1").Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, doFrom(handler, http.MethodPost, "/api/v1/auth/login", "192.168.1.1:1").Code)
	})

	t.Run("Register endpoint has stricter limit", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, doFrom(handler, http.MethodPost, "/api/v1/auth/register", "192.168.1.2:1").Code)
		assert.Equal(t, http.StatusTooManyRequests, doFrom(handler, http.MethodPost, "/api/v1/auth/register", "192.168.1.2:1").Code)
	})

	t.Run("Unknown path uses default limit", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			assert.Equal(t, http.StatusOK, doFrom(handler, http.MethodPost, "/api/v1/sync/pull", "192.168.1.3:1").Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, doFrom(handler, http.MethodPost, "/api/v1/sync/pull", "192.168.1.3:1").Code)
	})
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := newTestClock()
	limiter := NewRateLimiter(10, time.Minute, discardLogger()).WithClock(clock.Now)

	limiter.Allow("192.168.1.1")
	limiter.Allow("192.168.1.2")
	clock.Advance(30 * time.Second)
	limiter.Allow("192.168.1.3")
	require.Equal(t, 3, limiter.Len())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 2, limiter.Cleanup())
	assert.Equal(t, 1, limiter.Len())
}

func TestPathLimiter_RunStopsOnCancel(t *testing.T) {
	pl := NewPathLimiter([]PathRateLimit{{Path: "/a", Rate: 1, Window: time.Millisecond}}, 1, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pl.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRateLimiter_LogsExceededRequests(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	handler := NewRateLimiter(1, time.Minute, logger).Middleware()(okHandler())

	doFrom(handler, http.MethodPost, "/api/v1/auth/login", "192.168.1.1:12345")
	w := doFrom(handler, http.MethodPost, "/api/v1/auth/login", "192.168.1.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	logOutput := logBuf.String()
	assert.Contains(t, logOutput, "Rate limit exceeded")
	assert.Contains(t, logOutput, "192.168.1.1")
	assert.Contains(t, logOutput, "/api/v1/auth/login")
	assert.Contains(t, logOutput, "POST")
}
