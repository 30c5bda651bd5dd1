package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "jabbusiness-client-go/internal/platform/errors"
)

// Loader builds a Config from defaults, an optional YAML file and the
// environment.
type Loader struct {
	useDotEnv bool
	path      string
	// explicit is set when the path came from the caller; a missing
	// explicit file is an error, a missing default file is not.
	explicit bool
}

// NewLoader creates a loader reading DefaultConfigPath and .env.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      DefaultConfigPath(),
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the YAML file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
		l.explicit = true
	}
	return l
}

// Result captures the loaded configuration and the file it came from.
// Path is empty when no file was read.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the configuration and validates it.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// .env is optional
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	res := &Result{Config: cfg}

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "parse "+l.path, err)
			}
			res.Path = l.path
		case os.IsNotExist(err) && !l.explicit:
		default:
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "read "+l.path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "parse environment", err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	cfg.API.AppURL = strings.TrimRight(cfg.API.AppURL, "/")

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return res, nil
}

// Validate checks the fields the client cannot run without.
func (l *Loader) Validate(cfg *Config) error {
	if cfg == nil {
		return platformerrors.New(platformerrors.KindConfig, "validate", "config is nil")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("invalid api.base_url %q", cfg.API.BaseURL))
	}
	switch strings.ToLower(cfg.Session.Driver) {
	case "memory":
	case "sqlite", "":
		if cfg.Session.SQLite.DSN == "" {
			return platformerrors.New(platformerrors.KindConfig, "validate", "session.sqlite.dsn is required")
		}
	case "redis":
		if cfg.Session.Redis.Addr == "" {
			return platformerrors.New(platformerrors.KindConfig, "validate", "session.redis.addr is required")
		}
	default:
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("unsupported session driver %q", cfg.Session.Driver))
	}
	if cfg.Cache.Retry < 0 {
		return platformerrors.New(platformerrors.KindConfig, "validate", "cache.retry must not be negative")
	}
	if cfg.Cache.GCTime < 0 || cfg.Cache.StaleTime < 0 {
		return platformerrors.New(platformerrors.KindConfig, "validate", "cache durations must not be negative")
	}
	return nil
}
