// Package config загружает настройки сервера и клиента.
// Порядок приоритета: флаги cobra > переменные окружения LABSYNC_* > файл конфигурации > значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "LABSYNC"

// ErrInvalidConfig возвращается при недопустимых значениях
var ErrInvalidConfig = errors.New("invalid config")

// LogConfig настройки логирования
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text | json
	File       string `mapstructure:"file"`   // пусто - stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// JWTConfig параметры токенов
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// RateLimitConfig лимиты запросов
type RateLimitConfig struct {
	AuthRate      int           `mapstructure:"auth_rate"`
	AuthWindow    time.Duration `mapstructure:"auth_window"`
	DefaultRate   int           `mapstructure:"default_rate"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
}

// PresenceConfig параметры комнат документов
type PresenceConfig struct {
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MailboxSize   int           `mapstructure:"mailbox_size"`
}

// WebSocketConfig параметры канала присутствия
type WebSocketConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
}

// ServerConfig настройки labsync-server
type ServerConfig struct {
	Log                  LogConfig       `mapstructure:"log"`
	JWT                  JWTConfig       `mapstructure:"jwt"`
	WebSocket            WebSocketConfig `mapstructure:"websocket"`
	Addr                 string          `mapstructure:"addr"`
	DBPath               string          `mapstructure:"db_path"`
	RateLimit            RateLimitConfig `mapstructure:"rate_limit"`
	Presence             PresenceConfig  `mapstructure:"presence"`
	TokenCleanupInterval time.Duration   `mapstructure:"token_cleanup_interval"`
	ShutdownTimeout      time.Duration   `mapstructure:"shutdown_timeout"`
}

// SyncConfig параметры координатора синхронизации
type SyncConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	BackoffMin   time.Duration `mapstructure:"backoff_min"`
	BackoffMax   time.Duration `mapstructure:"backoff_max"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	PullLimit    int           `mapstructure:"pull_limit"`
}

// ClientConfig настройки клиента labsync
type ClientConfig struct {
	Log        LogConfig     `mapstructure:"log"`
	ServerURL  string        `mapstructure:"server_url"`
	DBPath     string        `mapstructure:"db_path"`
	DeviceName string        `mapstructure:"device_name"`
	Sync       SyncConfig    `mapstructure:"sync"`
	Quota      QuotaConfig   `mapstructure:"quota"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// QuotaConfig лимит локального хранилища
type QuotaConfig struct {
	LimitBytes int64   `mapstructure:"limit_bytes"`
	WarnRatio  float64 `mapstructure:"warn_ratio"`
}

func setLogDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// NewServerViper создает viper с значениями по умолчанию и чтением окружения
func NewServerViper() *viper.Viper {
	v := newViper()
	v.SetDefault("addr", ":8080")
	v.SetDefault("db_path", "labsync.db")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 30*24*time.Hour)
	v.SetDefault("rate_limit.auth_rate", 10)
	v.SetDefault("rate_limit.auth_window", time.Minute)
	v.SetDefault("rate_limit.default_rate", 600)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("presence.lock_ttl", 30*time.Second)
	v.SetDefault("presence.sweep_interval", 5*time.Second)
	v.SetDefault("presence.timeout", 60*time.Second)
	v.SetDefault("presence.mailbox_size", 64)
	v.SetDefault("websocket.allowed_origins", []string{})
	v.SetDefault("websocket.ping_interval", 20*time.Second)
	v.SetDefault("websocket.write_timeout", 5*time.Second)
	v.SetDefault("websocket.queue_size", 128)
	v.SetDefault("token_cleanup_interval", time.Hour)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	setLogDefaults(v)
	return v
}

// NewClientViper создает viper клиента
func NewClientViper() *viper.Viper {
	v := newViper()
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("db_path", "labsync-client.db")
	v.SetDefault("device_name", "")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.backoff_min", time.Second)
	v.SetDefault("sync.backoff_max", time.Minute)
	v.SetDefault("sync.tick_interval", 30*time.Second)
	v.SetDefault("sync.pull_limit", 200)
	v.SetDefault("quota.limit_bytes", int64(0))
	v.SetDefault("quota.warn_ratio", 0.9)
	setLogDefaults(v)
	v.SetDefault("log.level", "warn")
	return v
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile читает файл конфигурации, если путь задан. Формат определяется по расширению.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// LoadServer собирает и проверяет ServerConfig
func LoadServer(v *viper.Viper) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode server config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет ServerConfig
func (c *ServerConfig) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfig)
	case len(c.JWT.Secret) < 16:
		return fmt.Errorf("%w: jwt.secret must be at least 16 characters (set %s_JWT_SECRET)", ErrInvalidConfig, EnvPrefix)
	case c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0:
		return fmt.Errorf("%w: jwt ttl must be positive", ErrInvalidConfig)
	case c.Presence.LockTTL <= 0 || c.Presence.SweepInterval <= 0 || c.Presence.Timeout <= 0:
		return fmt.Errorf("%w: presence intervals must be positive", ErrInvalidConfig)
	case c.RateLimit.AuthRate <= 0 || c.RateLimit.DefaultRate <= 0:
		return fmt.Errorf("%w: rate limits must be positive", ErrInvalidConfig)
	}
	return validateLog(c.Log)
}

// LoadClient собирает и проверяет ClientConfig
func LoadClient(v *viper.Viper) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode client config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет ClientConfig
func (c *ClientConfig) Validate() error {
	switch {
	case c.ServerURL == "":
		return fmt.Errorf("%w: server_url is required", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path is required", ErrInvalidConfig)
	case c.Sync.MaxRetries < 1:
		return fmt.Errorf("%w: sync.max_retries must be >= 1", ErrInvalidConfig)
	case c.Sync.BackoffMin <= 0 || c.Sync.BackoffMax < c.Sync.BackoffMin:
		return fmt.Errorf("%w: sync.backoff_min must be positive and not above sync.backoff_max", ErrInvalidConfig)
	case c.Sync.TickInterval <= 0:
		return fmt.Errorf("%w: sync.tick_interval must be positive", ErrInvalidConfig)
	case c.Quota.LimitBytes < 0:
		return fmt.Errorf("%w: quota.limit_bytes must not be negative", ErrInvalidConfig)
	}
	return validateLog(c.Log)
}

func validateLog(l LogConfig) error {
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, l.Format)
	}
	return nil
}

// WatchClient следит за файлом конфигурации и передает в onChange каждую валидную новую версию.
// Невалидное содержимое передается в onError, текущая конфигурация при этом не меняется.
func WatchClient(v *viper.Viper, onChange func(*ClientConfig), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := LoadClient(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
