package store

import (
	"context"
	"time"
)

// Store is a small persisted key/value map holding the session entries.
// Every call is synchronous; a successful Set is visible to the next Get.
type Store interface {
	Set(ctx context.Context, key, value string) error
	// Get reports ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Remove(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the driver selection parameters.
type Config struct {
	Driver    string
	Namespace string
	// TTL expires entries in drivers that support it. Zero keeps entries
	// until they are removed.
	TTL    time.Duration
	Redis  *RedisConfig
	SQLite *SQLiteConfig
}

// SQLiteConfig provides the database location when no handle is injected.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

const defaultNamespace = "default"

func namespaceOf(cfg Config) string {
	if cfg.Namespace == "" {
		return defaultNamespace
	}
	return cfg.Namespace
}
