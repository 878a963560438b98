package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test"

func TestLoadServer_Defaults(t *testing.T) {
	v := NewServerViper()
	v.Set("jwt.secret", testSecret)

	cfg, err := LoadServer(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "labsync.db", cfg.DBPath)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*time.Second, cfg.Presence.LockTTL)
	assert.Equal(t, 5*time.Second, cfg.Presence.SweepInterval)
	assert.Equal(t, 60*time.Second, cfg.Presence.Timeout)
	assert.Equal(t, 64, cfg.Presence.MailboxSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadServer_EnvOverrides(t *testing.T) {
	t.Setenv("LABSYNC_JWT_SECRET", testSecret)
	t.Setenv("LABSYNC_ADDR", "127.0.0.1:9000")
	t.Setenv("LABSYNC_PRESENCE_LOCK_TTL", "45s")
	t.Setenv("LABSYNC_WEBSOCKET_ALLOWED_ORIGINS", "app.example.com,*.lab.local")

	cfg, err := LoadServer(NewServerViper())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, testSecret, cfg.JWT.Secret)
	assert.Equal(t, 45*time.Second, cfg.Presence.LockTTL)
	assert.Equal(t, []string{"app.example.com", "*.lab.local"}, cfg.WebSocket.AllowedOrigins)
}

func TestLoadServer_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":7070"
jwt:
  secret: "`+testSecret+`"
  access_ttl: 5m
presence:
  sweep_interval: 2s
log:
  format: json
`), 0o600))

	v := NewServerViper()
	require.NoError(t, ReadFile(v, path))

	cfg, err := LoadServer(v)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 2*time.Second, cfg.Presence.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.Presence.LockTTL, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestReadFile(t *testing.T) {
	v := NewServerViper()
	assert.NoError(t, ReadFile(v, ""), "empty path is not an error")
	assert.Error(t, ReadFile(v, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLoadServer_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v map[string]any)
	}{
		{name: "missing secret", mutate: func(m map[string]any) { m["jwt.secret"] = "" }},
		{name: "short secret", mutate: func(m map[string]any) { m["jwt.secret"] = "short" }},
		{name: "empty addr", mutate: func(m map[string]any) { m["addr"] = "" }},
		{name: "zero lock ttl", mutate: func(m map[string]any) { m["presence.lock_ttl"] = 0 }},
		{name: "zero auth rate", mutate: func(m map[string]any) { m["rate_limit.auth_rate"] = 0 }},
		{name: "bad log format", mutate: func(m map[string]any) { m["log.format"] = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides := map[string]any{"jwt.secret": testSecret}
			tt.mutate(overrides)

			v := NewServerViper()
			for k, val := range overrides {
				v.Set(k, val)
			}
			_, err := LoadServer(v)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadClient(NewClientViper())
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
		assert.Equal(t, 5, cfg.Sync.MaxRetries)
		assert.Equal(t, time.Second, cfg.Sync.BackoffMin)
		assert.Equal(t, time.Minute, cfg.Sync.BackoffMax)
		assert.Equal(t, 30*time.Second, cfg.Sync.TickInterval)
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("LABSYNC_SERVER_URL", "https://sync.lab.local")
		t.Setenv("LABSYNC_SYNC_TICK_INTERVAL", "10s")
		t.Setenv("LABSYNC_QUOTA_LIMIT_BYTES", "1048576")

		cfg, err := LoadClient(NewClientViper())
		require.NoError(t, err)
		assert.Equal(t, "https://sync.lab.local", cfg.ServerURL)
		assert.Equal(t, 10*time.Second, cfg.Sync.TickInterval)
		assert.Equal(t, int64(1048576), cfg.Quota.LimitBytes)
	})

	t.Run("backoff min above max", func(t *testing.T) {
		v := NewClientViper()
		v.Set("sync.backoff_min", 2*time.Minute)
		_, err := LoadClient(v)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("zero retries", func(t *testing.T) {
		v := NewClientViper()
		v.Set("sync.max_retries", 0)
		_, err := LoadClient(v)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestWatchClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  tick_interval: 30s\n"), 0o600))

	v := NewClientViper()
	require.NoError(t, ReadFile(v, path))

	var latest atomic.Pointer[ClientConfig]
	WatchClient(v, func(cfg *ClientConfig) { latest.Store(cfg) }, nil)

	require.NoError(t, os.WriteFile(path, []byte("sync:\n  tick_interval: 5s\n"), 0o600))

	require.Eventually(t, func() bool {
		cfg := latest.Load()
		return cfg != nil && cfg.Sync.TickInterval == 5*time.Second
	}, 3*time.Second, 20*time.Millisecond)
}
