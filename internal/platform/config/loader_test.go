package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	platformerrors "jabbusiness-client-go/internal/platform/errors"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
api:
  base_url: "http://api.example.test/api/v1/"
  timeout: 5s
session:
  driver: memory
cache:
  stale_time: 30s
  retry: 2
log:
  level: debug
`
	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	res, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if res.Path != configFile {
		t.Errorf("expected path %s, got %s", configFile, res.Path)
	}
	if cfg.API.BaseURL != "http://api.example.test/api/v1" {
		t.Errorf("expected trimmed base url, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.API.Timeout)
	}
	if cfg.Session.Driver != "memory" {
		t.Errorf("expected memory driver, got %s", cfg.Session.Driver)
	}
	if cfg.Cache.StaleTime != 30*time.Second || cfg.Cache.Retry != 2 {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Cache.GCTime != 5*time.Minute {
		t.Errorf("expected default gc time to survive, got %s", cfg.Cache.GCTime)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("api:\n  base_url: http://file.test\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("JABB_API_URL", "http://env.test/api/v1")
	t.Setenv("JABB_SESSION_DRIVER", "memory")

	res, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if res.Config.API.BaseURL != "http://env.test/api/v1" {
		t.Errorf("expected env base url, got %s", res.Config.API.BaseURL)
	}
	if res.Config.Session.Driver != "memory" {
		t.Errorf("expected env driver, got %s", res.Config.Session.Driver)
	}
}

func TestLoader_MissingDefaultFileUsesDefaults(t *testing.T) {
	l := NewLoader().WithDotEnv(false)
	l.path = filepath.Join(t.TempDir(), "absent.yaml")

	res, err := l.Load()
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if res.Path != "" {
		t.Errorf("expected no path, got %s", res.Path)
	}
	if res.Config.API.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got %s", res.Config.API.BaseURL)
	}
}

func TestLoader_MissingExplicitFile(t *testing.T) {
	_, err := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "bad base url", mutate: func(c *Config) { c.API.BaseURL = "not a url" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Session.Driver = "etcd" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) {
			c.Session.Driver = "redis"
			c.Session.Redis.Addr = ""
		}, wantErr: true},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Session.SQLite.DSN = "" }, wantErr: true},
		{name: "negative retry", mutate: func(c *Config) { c.Cache.Retry = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := loader.Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
