package querycache

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Status string

const (
	// StatusIdle is a disabled query: nothing fetched, nothing cached.
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrObserverClosed is returned by Wait after Close.
var ErrObserverClosed = errors.New("observer closed")

// State is what a consumer sees for one query. Data keeps the last good
// value even when Status is StatusError.
type State[T any] struct {
	Data       T
	HasData    bool
	Status     Status
	Error      error
	IsFetching bool
	UpdatedAt  time.Time
}

// Settled reports whether no fetch is pending for this state.
func (s State[T]) Settled() bool {
	switch s.Status {
	case StatusIdle:
		return true
	case StatusSuccess, StatusError:
		return !s.IsFetching
	default:
		return false
	}
}

type snapshot struct {
	data      any
	hasData   bool
	status    Status
	err       error
	fetching  bool
	updatedAt time.Time
}

func (e *entry) snapshot() snapshot {
	status := e.status
	if !e.hasData && e.err == nil {
		status = StatusLoading
	}
	return snapshot{
		data:      e.data,
		hasData:   e.hasData,
		status:    status,
		err:       e.err,
		fetching:  e.scheduled > 0,
		updatedAt: e.updatedAt,
	}
}

// observer is the type-erased registration held by an entry.
type observer struct {
	deliver func(snapshot)
}

// notifyLocked pushes the entry state to its observers. Caller holds c.mu.
func (c *Cache) notifyLocked(e *entry) {
	if len(e.observers) == 0 {
		return
	}
	snap := e.snapshot()
	for _, o := range e.observers {
		o.deliver(snap)
	}
}

// Observer is a mounted consumer of one query. It keeps the entry alive,
// receives every state change and stops receiving after Close.
type Observer[T any] struct {
	cache    *Cache
	key      Key
	id       string
	disabled bool

	mu      sync.Mutex
	state   State[T]
	updates chan State[T]
	closed  bool
}

// Observe mounts an observer on key. A stale or missing entry triggers a
// background fetch; a disabled query stays idle and touches nothing.
func Observe[T any](c *Cache, key Key, fn func(context.Context) (T, error), opts QueryOptions) *Observer[T] {
	o := &Observer[T]{
		cache:   c,
		key:     key,
		id:      newObserverID(),
		updates: make(chan State[T], 1),
	}
	if opts.Disabled {
		o.disabled = true
		o.state = State[T]{Status: StatusIdle}
		return o
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		o.state = State[T]{Status: StatusError, Error: ErrClosed}
		return o
	}

	e := c.entryFor(key, erase(fn), c.resolve(opts))
	e.observers[o.id] = &observer{deliver: o.deliver}
	if e.hasData {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}

	if e.isStale(time.Now()) {
		c.launch(e)
	} else {
		o.deliver(e.snapshot())
	}
	return o
}

func (o *Observer[T]) deliver(s snapshot) {
	st := State[T]{
		HasData:    s.hasData,
		Status:     s.status,
		Error:      s.err,
		IsFetching: s.fetching,
		UpdatedAt:  s.updatedAt,
	}
	if s.hasData {
		st.Data, _ = s.data.(T)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.state = st
	// keep only the newest state buffered
	select {
	case <-o.updates:
	default:
	}
	select {
	case o.updates <- st:
	default:
	}
}

// State returns the latest state.
func (o *Observer[T]) State() State[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Updates delivers state changes. Only the newest pending state is kept.
// The channel is closed by Close.
func (o *Observer[T]) Updates() <-chan State[T] {
	return o.updates
}

func (o *Observer[T]) Key() Key { return o.key }

// Enabled is false for a disabled (idle) query.
func (o *Observer[T]) Enabled() bool { return !o.disabled }

// Wait blocks until the state is settled. It consumes Updates.
func (o *Observer[T]) Wait(ctx context.Context) (State[T], error) {
	for {
		st := o.State()
		if st.Settled() {
			return st, nil
		}
		select {
		case _, ok := <-o.updates:
			if !ok {
				return o.State(), ErrObserverClosed
			}
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Refetch forces a new fetch and waits for it. A disabled query is a no-op.
func (o *Observer[T]) Refetch(ctx context.Context) (State[T], error) {
	if o.disabled {
		return o.State(), nil
	}
	err := o.cache.Refetch(ctx, o.key)
	return o.State(), err
}

// Close unmounts the observer. No state is delivered afterwards. Safe to
// call more than once.
func (o *Observer[T]) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.updates)
	o.mu.Unlock()

	if o.disabled {
		return
	}
	c := o.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[o.key.String()]; ok {
		delete(e.observers, o.id)
		if len(e.observers) == 0 {
			e.unobservedSince = time.Now()
		}
	}
}
