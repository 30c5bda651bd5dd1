package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// StartSpan logs the start of an operation and returns a func that logs its
// end with the elapsed time. Failed spans are logged at warn.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	l, ok := current()
	if !ok {
		return ctx, func(error) {}
	}

	start := time.Now()
	l.LogAttrs(ctx, slog.LevelDebug, "obs span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", err))
		}
		l.LogAttrs(ctx, level, "obs span end", attrs...)
		metrics.observe(component+".span_ms", float64(elapsed.Microseconds())/1000)
	}
}

// RecordMetric logs one datapoint and folds it into the summary for name.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	l, ok := current()
	if !ok {
		return
	}

	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, labels[k]))
	}
	l.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
	metrics.observe(name, value)
}

// Summary aggregates every datapoint recorded under one metric name.
type Summary struct {
	Name  string
	Count int64
	Sum   float64
	Max   float64
}

// Summaries returns the current aggregates sorted by name.
func Summaries() []Summary {
	return metrics.snapshot()
}

type registry struct {
	mu    sync.Mutex
	items map[string]*Summary
}

func newRegistry() *registry {
	return &registry{items: make(map[string]*Summary)}
}

func (r *registry) reset() {
	r.mu.Lock()
	r.items = make(map[string]*Summary)
	r.mu.Unlock()
}

func (r *registry) observe(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[name]
	if !ok {
		s = &Summary{Name: name}
		r.items[name] = s
	}
	s.Count++
	s.Sum += value
	if s.Count == 1 || value > s.Max {
		s.Max = value
	}
}

func (r *registry) snapshot() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Summary, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
