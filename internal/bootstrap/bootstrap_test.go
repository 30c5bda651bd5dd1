package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jabbusiness-client-go/internal/domain/models"
	platformconfig "jabbusiness-client-go/internal/platform/config"
	platformerrors "jabbusiness-client-go/internal/platform/errors"
	platformlogging "jabbusiness-client-go/internal/platform/logging"
	"jabbusiness-client-go/internal/platform/observability"
	platformtesting "jabbusiness-client-go/internal/platform/testing"
)

func writeConfig(t *testing.T, baseURL string) (path, dsn string) {
	t.Helper()
	dir := t.TempDir()
	dsn = filepath.Join(dir, "session.db")
	path = filepath.Join(dir, "config.yaml")
	body := "api:\n" +
		"  base_url: " + baseURL + "\n" +
		"  app_url: http://dashboard.test\n" +
		"session:\n" +
		"  driver: sqlite\n" +
		"  sqlite:\n" +
		"    dsn: " + dsn + "\n" +
		"cache:\n" +
		"  retry_delay: 1ms\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dsn
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load",
		"logging:init-provider",
		"observability:setup-hooks",
		"storage:init-database",
		"session:init-store",
		"eventbus:init",
		"api:init-client",
		"cache:init",
		"hooks:init",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestExecuteInitStepsDependencyOrder(t *testing.T) {
	var ran []string
	record := func(id string) stepFn {
		return func(context.Context, *appState) error {
			ran = append(ran, id)
			return nil
		}
	}
	steps := []initStep{
		{ID: "a", Execute: record("a")},
		{ID: "c", DependsOn: []string{"b"}, Execute: record("c")},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
	if len(ran) != 1 {
		t.Fatalf("steps after a missing dependency must not run, ran %v", ran)
	}
}

func TestExecuteInitStepsWrapsUntypedErrors(t *testing.T) {
	steps := []initStep{{
		ID:      "storage:broken",
		Kind:    platformerrors.KindStorage,
		Execute: func(context.Context, *appState) error { return errors.New("disk full") },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	if !platformerrors.IsKind(err, platformerrors.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestNewWiresApp(t *testing.T) {
	backend := platformtesting.NewBackend(t)
	path, _ := writeConfig(t, backend.URL())
	var console bytes.Buffer

	app, err := New(context.Background(), Options{ConfigPath: path, Verbose: true, Console: &console})
	platformtesting.AssertNoError(t, err)
	defer app.Close()

	if app.Hooks == nil || app.Cache == nil || app.Session == nil || app.API == nil || app.Bus == nil {
		t.Fatalf("app not fully wired: %+v", app)
	}
	platformtesting.AssertEqual(t, path, app.ConfigPath)
	platformtesting.AssertEqual(t, "debug", app.Config.Log.Level)

	out := console.String()
	for _, id := range []string{"config:load", "session:init-store", "hooks:init"} {
		if !strings.Contains(out, id) {
			t.Fatalf("expected init graph to mention %q, got: %s", id, out)
		}
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	backend := platformtesting.NewBackend(t)
	path, _ := writeConfig(t, backend.URL())
	ctx := context.Background()

	app, err := New(ctx, Options{ConfigPath: path})
	platformtesting.AssertNoError(t, err)
	_, err = app.Hooks.Auth().Login(ctx, models.LoginPayload{Username: "demo@jabb.test", Password: "secret"})
	platformtesting.AssertNoError(t, err)
	platformtesting.AssertNoError(t, app.Close())

	again, err := New(ctx, Options{ConfigPath: path})
	platformtesting.AssertNoError(t, err)
	defer again.Close()

	if !again.Hooks.Auth().IsAuthenticated(ctx) {
		t.Fatal("session lost across restart")
	}
	if u := again.Hooks.Auth().User(ctx); u == nil || u.Email != "demo@jabb.test" {
		t.Fatalf("unexpected user after restart: %+v", u)
	}
}

func TestNewWithOverride(t *testing.T) {
	backend := platformtesting.NewBackend(t)
	path, _ := writeConfig(t, "http://unused.invalid/api/v1")

	app, err := New(context.Background(), Options{
		ConfigPath: path,
		Override: func(cfg *platformconfig.Config) {
			cfg.API.BaseURL = backend.URL()
			cfg.Session.Driver = "memory"
		},
	})
	platformtesting.AssertNoError(t, err)
	defer app.Close()
	platformtesting.AssertEqual(t, backend.URL(), app.API.Client.BaseURL())
}

func TestNewFailsOnMissingExplicitConfig(t *testing.T) {
	_, err := New(context.Background(), Options{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNewFailsOnInvalidOverride(t *testing.T) {
	path, _ := writeConfig(t, "http://127.0.0.1:1/api/v1")
	_, err := New(context.Background(), Options{
		ConfigPath: path,
		Override:   func(cfg *platformconfig.Config) { cfg.Session.Driver = "etcd" },
	})
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := platformlogging.New(platformlogging.Config{Level: "debug", NoColor: true, Console: &buf})
	platformtesting.AssertNoError(t, err)
	defer logger.Close()

	logBootstrapGraph(InitGraph(), logger)
	content := buf.String()
	if !strings.Contains(content, "init graph") {
		t.Fatalf("graph header missing in log output: %s", content)
	}
	if !strings.Contains(content, "hooks:init (Initialise data hooks) <- api:init-client, cache:init, session:init-store") {
		t.Fatalf("dependencies missing in log output: %s", content)
	}
}

func TestObservabilityRecordsRequests(t *testing.T) {
	backend := platformtesting.NewBackend(t)
	path, _ := writeConfig(t, backend.URL())
	ctx := context.Background()

	app, err := New(ctx, Options{
		ConfigPath: path,
		Override:   func(cfg *platformconfig.Config) { cfg.Observability.Enabled = true },
	})
	platformtesting.AssertNoError(t, err)
	defer app.Close()

	if !observability.Enabled() {
		t.Fatal("expected observability enabled")
	}
	_, err = app.Hooks.Auth().Login(ctx, models.LoginPayload{Username: "demo@jabb.test", Password: "secret"})
	platformtesting.AssertNoError(t, err)

	var found bool
	for _, s := range observability.Summaries() {
		if s.Name == "api.request_ms" && s.Count >= 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("api.request_ms not recorded: %+v", observability.Summaries())
	}
}

func TestResetSessionDropsStoredLogin(t *testing.T) {
	backend := platformtesting.NewBackend(t)
	path, _ := writeConfig(t, backend.URL())
	ctx := context.Background()

	app, err := New(ctx, Options{ConfigPath: path})
	platformtesting.AssertNoError(t, err)
	defer app.Close()

	_, err = app.Hooks.Auth().Login(ctx, models.LoginPayload{Username: "demo@jabb.test", Password: "secret"})
	platformtesting.AssertNoError(t, err)
	platformtesting.AssertNoError(t, app.ResetSession(ctx))

	if app.Hooks.Auth().IsAuthenticated(ctx) {
		t.Fatal("session survived reset")
	}
	schema, err := app.SessionSchema()
	platformtesting.AssertNoError(t, err)
	if len(schema) != 1 || schema[0].Version != "001_initial" {
		t.Fatalf("unexpected schema after reset: %+v", schema)
	}
}
