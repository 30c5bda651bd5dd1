package querycache

import "time"

// Options are the cache-wide defaults.
type Options struct {
	StaleTime  time.Duration
	GCTime     time.Duration
	Retry      int
	RetryDelay time.Duration
	// JanitorInterval is how often unobserved entries are swept.
	JanitorInterval time.Duration
}

// DefaultOptions matches the dashboard's query client: data is fresh for
// two minutes, kept five minutes after its last observer leaves, and a
// failed query is retried once.
func DefaultOptions() Options {
	return Options{
		StaleTime:       2 * time.Minute,
		GCTime:          5 * time.Minute,
		Retry:           1,
		RetryDelay:      time.Second,
		JanitorInterval: 30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StaleTime < 0 {
		o.StaleTime = 0
	}
	if o.GCTime <= 0 {
		o.GCTime = d.GCTime
	}
	if o.Retry < 0 {
		o.Retry = 0
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.JanitorInterval <= 0 {
		o.JanitorInterval = d.JanitorInterval
	}
	return o
}

// QueryOptions override the defaults for one query. Zero values inherit.
type QueryOptions struct {
	StaleTime time.Duration
	GCTime    time.Duration
	// Retry overrides the retry count when non-nil.
	Retry *int
	// Disabled keeps the query idle: nothing is fetched or cached.
	Disabled bool
}

// Retries is a helper for QueryOptions.Retry.
func Retries(n int) *int {
	return &n
}

type resolved struct {
	staleTime time.Duration
	gcTime    time.Duration
	retry     int
}

func (c *Cache) resolve(q QueryOptions) resolved {
	r := resolved{
		staleTime: c.opts.StaleTime,
		gcTime:    c.opts.GCTime,
		retry:     c.opts.Retry,
	}
	if q.StaleTime > 0 {
		r.staleTime = q.StaleTime
	}
	if q.GCTime > 0 {
		r.gcTime = q.GCTime
	}
	if q.Retry != nil && *q.Retry >= 0 {
		r.retry = *q.Retry
	}
	return r
}
