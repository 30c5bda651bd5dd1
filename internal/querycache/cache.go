// Package querycache is a keyed, observable cache for server data. Each key
// has at most one fetch in flight, fresh data is served without network,
// and mutations invalidate whole resource families.
package querycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"jabbusiness-client-go/internal/domain/eventbus"
	"jabbusiness-client-go/internal/platform/logging"
	"jabbusiness-client-go/internal/platform/observability"
)

// ErrClosed is returned by fetches started after Close.
var ErrClosed = errors.New("query cache closed")

// ErrUnknownKey is returned by Refetch for keys that were never fetched.
var ErrUnknownKey = errors.New("query key not in cache")

// fetchFunc is the type-erased fetcher stored per entry.
type fetchFunc func(ctx context.Context) (any, error)

type entry struct {
	key       Key
	data      any
	hasData   bool
	err       error
	status    Status
	updatedAt time.Time
	// invalid is set by Invalidate and cleared by the next applied fetch.
	invalid bool

	fetch fetchFunc
	opts  resolved

	// scheduled counts callers waiting on a fetch for this key.
	scheduled int
	// seq numbers fetch executions; applied is the newest one whose
	// result was stored. generation is bumped by Invalidate.
	seq        uint64
	applied    uint64
	generation uint64

	observers       map[string]*observer
	unobservedSince time.Time
}

// Cache is safe for concurrent use. Construct it once and share it.
type Cache struct {
	opts   Options
	logger *logging.Logger
	bus    *eventbus.Bus

	mu      sync.Mutex
	entries map[string]*entry
	flight  singleflight.Group
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	stop   chan struct{}

	stats Stats
}

// Stats are cumulative counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Fetches   int64 `json:"fetches"`
	Errors    int64 `json:"errors"`
	Discarded int64 `json:"discarded"`
	Collected int64 `json:"collected"`
	Entries   int   `json:"entries"`
	Observers int   `json:"observers"`
}

// New creates a cache and starts its janitor. bus may be nil.
func New(opts Options, logger *logging.Logger, bus *eventbus.Bus) *Cache {
	if logger == nil {
		logger = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		opts:    opts.withDefaults(),
		logger:  logger,
		bus:     bus,
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Close cancels in-flight fetches and waits for them to return.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	c.cancel()
	c.wg.Wait()
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(c.opts.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.GC()
		case <-c.stop:
			return
		}
	}
}

// GC drops entries that have had no observers for longer than their GC
// time and have no fetch in flight. It returns the number removed.
func (c *Cache) GC() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for h, e := range c.entries {
		if len(e.observers) > 0 || e.scheduled > 0 {
			continue
		}
		if now.Sub(e.unobservedSince) >= e.opts.gcTime {
			delete(c.entries, h)
			removed++
		}
	}
	if removed > 0 {
		c.stats.Collected += int64(removed)
		c.logger.DebugTag(logging.TagCache, "collected %d idle entries", removed)
	}
	return removed
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	for _, e := range c.entries {
		s.Observers += len(e.observers)
	}
	return s
}

// Has reports whether key currently has an entry.
func (c *Cache) Has(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key.String()]
	return ok
}

// entryFor returns the entry for key, creating it if needed. Caller holds mu.
func (c *Cache) entryFor(key Key, fn fetchFunc, opts resolved) *entry {
	h := key.String()
	e, ok := c.entries[h]
	if !ok {
		e = &entry{
			key:             key,
			status:          StatusLoading,
			observers:       make(map[string]*observer),
			unobservedSince: time.Now(),
		}
		c.entries[h] = e
	}
	if fn != nil {
		e.fetch = fn
	}
	e.opts = opts
	return e
}

func (e *entry) isStale(now time.Time) bool {
	if !e.hasData || e.invalid {
		return true
	}
	return now.Sub(e.updatedAt) >= e.opts.staleTime
}

type result struct {
	val any
	err error
}

// launch schedules a fetch for e, joining any flight already running for
// the same key. Caller holds mu.
func (c *Cache) launch(e *entry) <-chan result {
	ch := make(chan result, 1)
	if c.closed || e.fetch == nil {
		ch <- result{err: ErrClosed}
		return ch
	}
	e.scheduled++
	c.notifyLocked(e)

	h := e.key.String()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := <-c.flight.DoChan(h, func() (any, error) {
			return c.execute(e)
		})

		c.mu.Lock()
		e.scheduled--
		c.notifyLocked(e)
		c.mu.Unlock()

		ch <- result{val: res.Val, err: res.Err}
	}()
	return ch
}

// execute runs one fetch with retries and applies the result unless a
// newer fetch or an invalidation happened meanwhile.
func (c *Cache) execute(e *entry) (any, error) {
	c.mu.Lock()
	e.seq++
	seq := e.seq
	gen := e.generation
	fn := e.fetch
	retry := e.opts.retry
	c.stats.Fetches++
	c.mu.Unlock()

	ctx, end := observability.StartSpan(c.ctx, "querycache", e.key.String())
	start := time.Now()
	val, err := c.withRetry(ctx, fn, retry)
	elapsed := time.Since(start)
	end(err)
	observability.RecordMetric(ctx, "querycache.fetch_ms", float64(elapsed.Microseconds())/1000, map[string]string{
		"resource": e.key.Resource,
		"outcome":  outcome(err),
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq < e.applied || gen != e.generation {
		c.stats.Discarded++
		c.logger.DebugTag(logging.TagCache, "discarded stale response for %s", e.key)
		return val, err
	}
	e.applied = seq
	if err != nil {
		c.stats.Errors++
		e.err = err
		e.status = StatusError
		c.logger.WarnTag(logging.TagCache, "fetch %s failed: %v", e.key, err)
	} else {
		e.data = val
		e.hasData = true
		e.err = nil
		e.status = StatusSuccess
		e.updatedAt = time.Now()
		e.invalid = false
		if len(e.observers) == 0 {
			e.unobservedSince = e.updatedAt
		}
		c.logger.DebugTag(logging.TagCache, "fetched %s in %s", e.key, elapsed)
	}
	c.notifyLocked(e)
	c.publish(eventbus.TopicQueryUpdated, eventbus.QueryEvent{
		Key:      e.key.String(),
		Resource: e.key.Resource,
		Success:  err == nil,
		Error:    errString(err),
		Duration: elapsed,
	})
	return val, err
}

func (c *Cache) withRetry(ctx context.Context, fn fetchFunc, retry int) (any, error) {
	var (
		val any
		err error
	)
	for attempt := 0; ; attempt++ {
		val, err = fn(ctx)
		if err == nil || attempt >= retry || ctx.Err() != nil {
			return val, err
		}
		delay := c.opts.RetryDelay << attempt
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return val, err
		}
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Invalidate marks every entry of the given resource families stale and
// refetches the observed ones in the background. Fetches already in flight
// for those entries will not be applied. It returns the number of entries
// marked.
func (c *Cache) Invalidate(families ...string) int {
	want := make(map[string]bool, len(families))
	for _, f := range families {
		want[f] = true
	}

	c.mu.Lock()
	marked := 0
	for h, e := range c.entries {
		if !want[e.key.Resource] {
			continue
		}
		marked++
		e.invalid = true
		e.generation++
		c.flight.Forget(h)
		if len(e.observers) > 0 {
			c.launch(e)
		}
	}
	c.mu.Unlock()

	c.logger.DebugTag(logging.TagCache, "invalidated %v (%d entries)", families, marked)
	c.publish(eventbus.TopicQueryInvalidated, eventbus.InvalidationEvent{Families: families, Entries: marked})
	return marked
}

// Refetch forces a new fetch of key and waits for it.
func (c *Cache) Refetch(ctx context.Context, key Key) error {
	h := key.String()
	c.mu.Lock()
	e, ok := c.entries[h]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return ErrUnknownKey
	}
	c.flight.Forget(h)
	ch := c.launch(e)
	c.mu.Unlock()

	select {
	case res := <-ch:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetch returns the data for key. Fresh data is returned without network;
// data stale by age is returned at once and refreshed in the background; a
// miss or an invalidated entry waits for the fetcher.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error), opts QueryOptions) (T, error) {
	var zero T
	if opts.Disabled {
		return zero, ErrDisabled
	}

	c.mu.Lock()
	e := c.entryFor(key, erase(fn), c.resolve(opts))
	if len(e.observers) == 0 {
		e.unobservedSince = time.Now()
	}
	// invalidated data is never served; the read waits like a miss
	if e.hasData && !e.invalid {
		data, _ := e.data.(T)
		if e.isStale(time.Now()) {
			c.launch(e)
		}
		c.stats.Hits++
		c.mu.Unlock()
		return data, nil
	}
	c.stats.Misses++
	ch := c.launch(e)
	c.mu.Unlock()

	select {
	case res := <-ch:
		if res.err != nil {
			return zero, res.err
		}
		data, _ := res.val.(T)
		return data, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ErrDisabled is returned by Fetch for a disabled query.
var ErrDisabled = errors.New("query disabled")

func erase[T any](fn func(context.Context) (T, error)) fetchFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

func (c *Cache) publish(topic string, ev any) {
	if c.bus == nil {
		return
	}
	c.bus.PublishAsync(topic, ev)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func newObserverID() string {
	return uuid.NewString()
}
