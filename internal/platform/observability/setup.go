// Package observability emits lightweight spans and metric datapoints
// through the structured logger and keeps running summaries per metric.
package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config toggles instrumentation. When disabled spans and metrics are no-ops.
type Config struct {
	Enabled bool
}

// ShutdownFunc flushes and detaches instrumentation.
type ShutdownFunc func(context.Context) error

var (
	stateMu sync.RWMutex
	logger  *slog.Logger
	state   Config
	metrics = newRegistry()
)

func current() (*slog.Logger, bool) {
	stateMu.RLock()
	defer stateMu.RUnlock()
	if !state.Enabled || logger == nil {
		return nil, false
	}
	return logger, true
}

// Enabled reports whether instrumentation is active.
func Enabled() bool {
	_, ok := current()
	return ok
}

// Setup installs the logger used for spans and metrics and resets the
// summaries. The returned func logs a final summary per metric and
// disables instrumentation again.
func Setup(ctx context.Context, cfg Config, l *slog.Logger) (ShutdownFunc, error) {
	stateMu.Lock()
	logger = l
	state = cfg
	stateMu.Unlock()
	metrics.reset()

	if l != nil && cfg.Enabled {
		l.DebugContext(ctx, "[OBS] instrumentation enabled")
	}
	return func(ctx context.Context) error {
		if l, ok := current(); ok {
			for _, s := range Summaries() {
				l.LogAttrs(ctx, slog.LevelDebug, "obs summary",
					slog.String("metric", s.Name),
					slog.Int64("count", s.Count),
					slog.Float64("sum", s.Sum),
					slog.Float64("max", s.Max),
				)
			}
		}
		stateMu.Lock()
		logger = nil
		state = Config{}
		stateMu.Unlock()
		return nil
	}, nil
}
