// Package bootstrap wires the client from configuration through an ordered
// init graph and hands back an App ready for the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"jabbusiness-client-go/internal/apiclient"
	"jabbusiness-client-go/internal/app/hooks"
	"jabbusiness-client-go/internal/domain/eventbus"
	"jabbusiness-client-go/internal/domain/session"
	sessionstore "jabbusiness-client-go/internal/domain/session/store"
	platformconfig "jabbusiness-client-go/internal/platform/config"
	platformerrors "jabbusiness-client-go/internal/platform/errors"
	platformlogging "jabbusiness-client-go/internal/platform/logging"
	"jabbusiness-client-go/internal/platform/observability"
	platformstorage "jabbusiness-client-go/internal/platform/storage"
	"jabbusiness-client-go/internal/querycache"
)

const busWorkers = 2

// Options control how New builds the App.
type Options struct {
	// ConfigPath is an explicit YAML file; empty means the default path.
	ConfigPath string
	UseDotEnv  bool
	// Verbose forces debug logging.
	Verbose bool
	// Console receives log output; defaults to stderr.
	Console io.Writer
	// Override runs after loading and before validation.
	Override func(*platformconfig.Config)
}

// App holds every long-lived component. Close releases them in reverse
// order of construction.
type App struct {
	Config     *platformconfig.Config
	ConfigPath string
	Logger     *platformlogging.Logger
	Session    *session.Manager
	Bus        *eventbus.Bus
	API        *apiclient.API
	Cache      *querycache.Cache
	Hooks      *hooks.Hooks

	db          *gorm.DB
	obsShutdown observability.ShutdownFunc
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts Options
	app  *App
}

// New runs the init graph. On failure everything already opened is closed.
func New(ctx context.Context, opts Options) (*App, error) {
	state := &appState{opts: opts, app: &App{}}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		_ = state.app.Close()
		return nil, err
	}
	logBootstrapGraph(steps, state.app.Logger)
	return state.app, nil
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.DebugTag(platformlogging.TagBoot, "init graph")
	for _, step := range steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		logger.DebugTag(platformlogging.TagBoot, "%s (%s) <- %s", step.ID, step.Title, deps)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the steps in execution order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityHooksStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Open session database",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "session:init-store",
			Title:     "Initialise session store",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initSessionStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Start event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "api:init-client",
			Title:     "Initialise API client",
			DependsOn: []string{"session:init-store"},
			Kind:      platformerrors.KindConfig,
			Execute:   initAPIClientStep,
		},
		{
			ID:        "cache:init",
			Title:     "Initialise query cache",
			DependsOn: []string{"eventbus:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initCacheStep,
		},
		{
			ID:        "hooks:init",
			Title:     "Initialise data hooks",
			DependsOn: []string{"api:init-client", "cache:init", "session:init-store"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initHooksStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader().
		WithDotEnv(state.opts.UseDotEnv).
		WithPath(state.opts.ConfigPath)
	res, err := loader.Load()
	if err != nil {
		return err
	}

	cfg := res.Config
	if state.opts.Override != nil {
		state.opts.Override(cfg)
		if err := loader.Validate(cfg); err != nil {
			return err
		}
	}
	if state.opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if state.opts.Console != nil {
		cfg.Log.Console = state.opts.Console
	}

	state.app.Config = cfg
	state.app.ConfigPath = res.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	cfg := state.app.Config
	if cfg == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(cfg.Log)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.app.Logger = logger

	source := state.app.ConfigPath
	if source == "" {
		source = "defaults"
	}
	logger.DebugTag(platformlogging.TagBoot, "logging ready [%s] config=%s", cfg.Log.Level, source)
	return nil
}

func setupObservabilityHooksStep(ctx context.Context, state *appState) error {
	cfg := observability.Config{Enabled: state.app.Config.Observability.Enabled}
	shutdown, err := observability.Setup(ctx, cfg, state.app.Logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability", err)
	}
	state.app.obsShutdown = shutdown
	return nil
}

// initDatabaseStep opens the sqlite file only for the sqlite driver.
func initDatabaseStep(_ context.Context, state *appState) error {
	cfg := state.app.Config
	if driver := strings.ToLower(cfg.Session.Driver); driver != "" && driver != sessionstore.DriverSQLite {
		return nil
	}
	db, err := platformstorage.Open(cfg.Session.SQLite.DSN)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to open session database", err)
	}
	state.app.db = db
	state.app.Logger.DebugTag(platformlogging.TagBoot, "session database %s", cfg.Session.SQLite.DSN)
	return nil
}

func initSessionStep(_ context.Context, state *appState) error {
	cfg := state.app.Config.Session
	st, err := sessionstore.New(sessionstore.Config{
		Driver: cfg.Driver,
		SQLite: &sessionstore.SQLiteConfig{DSN: cfg.SQLite.DSN},
		Redis: &sessionstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}, sessionstore.Dependencies{SQLiteDB: state.app.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session:init-store", "failed to create session store", err)
	}

	mgr, err := session.NewManager(session.Options{Store: st, Logger: state.app.Logger})
	if err != nil {
		_ = st.Close(context.Background())
		return platformerrors.Wrap(platformerrors.KindBootstrap, "session:init-store", "failed to create session manager", err)
	}
	state.app.Session = mgr
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.New(busWorkers, state.app.Logger)
	bus.Start()
	state.app.Bus = bus
	if err := eventbus.NewLogHandler(state.app.Logger).Attach(bus); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "eventbus:init", "failed to attach log handler", err)
	}
	return nil
}

func initAPIClientStep(_ context.Context, state *appState) error {
	cfg := state.app.Config.API
	client, err := apiclient.New(apiclient.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Tokens:  state.app.Session,
		Logger:  state.app.Logger,
	})
	if err != nil {
		return err
	}
	state.app.API = apiclient.NewAPI(client)
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	cfg := state.app.Config.Cache
	state.app.Cache = querycache.New(querycache.Options{
		StaleTime:  cfg.StaleTime,
		GCTime:     cfg.GCTime,
		Retry:      cfg.Retry,
		RetryDelay: cfg.RetryDelay,
	}, state.app.Logger, state.app.Bus)
	return nil
}

func initHooksStep(_ context.Context, state *appState) error {
	h, err := hooks.New(hooks.Options{
		API:     state.app.API,
		Cache:   state.app.Cache,
		Session: state.app.Session,
		Bus:     state.app.Bus,
		Logger:  state.app.Logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "hooks:init", "failed to create hooks", err)
	}
	state.app.Hooks = h
	return nil
}

// SessionSchema lists the applied migrations of the session database. It
// is empty for drivers without one.
func (a *App) SessionSchema() ([]platformstorage.MigrationRecord, error) {
	if a.db == nil {
		return nil, nil
	}
	return platformstorage.History(a.db)
}

// ResetSession drops every stored session value. The sqlite schema is
// rebuilt from its migrations; other drivers have their keys removed.
func (a *App) ResetSession(ctx context.Context) error {
	if a.db == nil {
		return a.Session.Clear(ctx)
	}
	if err := platformstorage.Reset(a.db); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session.reset", "failed to reset session database", err)
	}
	a.Logger.InfoTag(platformlogging.TagSession, "session database reset")
	return nil
}

// Close stops the cache first so no fetch publishes into a closed bus, then
// releases the bus and the session store together, then the database and
// the logger. Safe on a partially built App.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.Cache != nil {
		a.Cache.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var g errgroup.Group
	if a.Bus != nil {
		g.Go(func() error {
			a.Bus.Close()
			return nil
		})
	}
	if a.Session != nil {
		g.Go(func() error {
			return a.Session.Close(ctx)
		})
	}
	err := g.Wait()

	if a.db != nil {
		if dbErr := platformstorage.Close(a.db); dbErr != nil && err == nil {
			err = dbErr
		}
	}
	if a.obsShutdown != nil {
		_ = a.obsShutdown(ctx)
	}
	if err != nil {
		a.Logger.WarnTag(platformlogging.TagBoot, "shutdown: %v", err)
	}
	if a.Logger != nil {
		_ = a.Logger.Close()
	}
	return err
}
