package config

import (
	"time"

	"jabbusiness-client-go/internal/platform/logging"
)

// Config is the full client configuration. Values come from defaults, then
// the YAML file, then JABB_* environment variables.
type Config struct {
	API     APIConfig      `yaml:"api"`
	Session SessionConfig  `yaml:"session"`
	Cache   CacheConfig    `yaml:"cache"`
	Log     logging.Config `yaml:"log"`

	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig turns on span and metric logging at debug level.
type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled" env:"JABB_OBSERVABILITY_ENABLED"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"JABB_API_URL"`
	AppURL  string        `yaml:"app_url" env:"JABB_APP_URL"`
	Timeout time.Duration `yaml:"timeout" env:"JABB_API_TIMEOUT"`
}

type SessionConfig struct {
	Driver string        `yaml:"driver" env:"JABB_SESSION_DRIVER"`
	SQLite SQLiteSession `yaml:"sqlite"`
	Redis  RedisSession  `yaml:"redis"`
}

type SQLiteSession struct {
	DSN string `yaml:"dsn" env:"JABB_SESSION_SQLITE_DSN"`
}

type RedisSession struct {
	Addr     string `yaml:"addr" env:"JABB_SESSION_REDIS_ADDR"`
	Username string `yaml:"username,omitempty" env:"JABB_SESSION_REDIS_USERNAME"`
	Password string `yaml:"password,omitempty" env:"JABB_SESSION_REDIS_PASSWORD"`
	DB       int    `yaml:"db,omitempty" env:"JABB_SESSION_REDIS_DB"`
	Prefix   string `yaml:"prefix,omitempty" env:"JABB_SESSION_REDIS_PREFIX"`
}

// CacheConfig holds the query cache defaults. Per-resource stale times are
// applied by the hooks layer on top of these.
type CacheConfig struct {
	StaleTime  time.Duration `yaml:"stale_time" env:"JABB_CACHE_STALE_TIME"`
	GCTime     time.Duration `yaml:"gc_time" env:"JABB_CACHE_GC_TIME"`
	Retry      int           `yaml:"retry" env:"JABB_CACHE_RETRY"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"JABB_CACHE_RETRY_DELAY"`
}
