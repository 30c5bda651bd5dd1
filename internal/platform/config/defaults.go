package config

import (
	"os"
	"path/filepath"
	"time"

	"jabbusiness-client-go/internal/platform/logging"
)

const (
	DefaultBaseURL = "http://127.0.0.1:5500/api/v1"
	DefaultAppURL  = "http://127.0.0.1:5173"
)

// HomeDir returns the per-user directory holding the config file and the
// sqlite session database.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".jabbusiness"
	}
	return filepath.Join(home, ".jabbusiness")
}

// DefaultConfigPath is the YAML file read when no --config flag is given.
func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			AppURL:  DefaultAppURL,
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Driver: "sqlite",
			SQLite: SQLiteSession{
				DSN: filepath.Join(HomeDir(), "session.db"),
			},
			Redis: RedisSession{
				Addr:   "127.0.0.1:6379",
				Prefix: "jabbusiness:session",
			},
		},
		Cache: CacheConfig{
			StaleTime:  2 * time.Minute,
			GCTime:     5 * time.Minute,
			Retry:      1,
			RetryDelay: time.Second,
		},
		Log: logging.Config{
			Level:    "warn",
			Filename: "jabbctl.log",
		},
	}
}
