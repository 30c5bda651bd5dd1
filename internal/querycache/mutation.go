package querycache

import (
	"context"
	"sync"

	"jabbusiness-client-go/internal/platform/logging"
)

// MutationOptions configure a Mutation. Mutations never retry.
type MutationOptions[P, R any] struct {
	// Invalidates lists the resource families marked stale on success.
	Invalidates []string
	OnSuccess   func(P, R)
	OnError     func(P, error)
}

// MutationState is the observable state of the last Mutate call.
type MutationState[P, R any] struct {
	Status    Status
	Data      R
	Error     error
	Variables P
	IsPending bool
}

// Mutation wraps a server write.
type Mutation[P, R any] struct {
	cache *Cache
	fn    func(context.Context, P) (R, error)
	opts  MutationOptions[P, R]

	mu    sync.Mutex
	state MutationState[P, R]
	// calls orders concurrent Mutate calls; only the newest updates state.
	calls uint64
}

func NewMutation[P, R any](c *Cache, fn func(context.Context, P) (R, error), opts MutationOptions[P, R]) *Mutation[P, R] {
	return &Mutation[P, R]{
		cache: c,
		fn:    fn,
		opts:  opts,
		state: MutationState[P, R]{Status: StatusIdle},
	}
}

// Mutate runs the write once. On success the configured families are
// invalidated before OnSuccess runs.
func (m *Mutation[P, R]) Mutate(ctx context.Context, vars P) (R, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.state = MutationState[P, R]{Status: StatusLoading, Variables: vars, IsPending: true}
	m.mu.Unlock()

	res, err := m.fn(ctx, vars)

	m.mu.Lock()
	if call == m.calls {
		if err != nil {
			m.state = MutationState[P, R]{Status: StatusError, Error: err, Variables: vars}
		} else {
			m.state = MutationState[P, R]{Status: StatusSuccess, Data: res, Variables: vars}
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.cache.logger.WarnTag(logging.TagCache, "mutation failed: %v", err)
		if m.opts.OnError != nil {
			m.opts.OnError(vars, err)
		}
		return res, err
	}

	if len(m.opts.Invalidates) > 0 {
		m.cache.Invalidate(m.opts.Invalidates...)
	}
	if m.opts.OnSuccess != nil {
		m.opts.OnSuccess(vars, res)
	}
	return res, nil
}

func (m *Mutation[P, R]) State() MutationState[P, R] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mutation[P, R]) IsPending() bool {
	return m.State().IsPending
}

// Reset returns the mutation to idle.
func (m *Mutation[P, R]) Reset() {
	m.mu.Lock()
	m.calls++
	m.state = MutationState[P, R]{Status: StatusIdle}
	m.mu.Unlock()
}
