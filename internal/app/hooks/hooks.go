// Package hooks binds query cache entries to resource client calls. Each
// query hook returns a mounted observer; each mutation hook declares the
// resource families it invalidates.
package hooks

import (
	"context"
	"errors"
	"time"

	"jabbusiness-client-go/internal/apiclient"
	"jabbusiness-client-go/internal/domain/eventbus"
	"jabbusiness-client-go/internal/domain/session"
	"jabbusiness-client-go/internal/platform/logging"
	"jabbusiness-client-go/internal/querycache"
)

// Resource families used as the first element of every cache key.
const (
	FamilyAnalytics     = "analytics"
	FamilyReports       = "reports"
	FamilyReportByToken = "report-by-token"
	FamilyEvents        = "events"
	FamilyEvent         = "event"
)

const (
	analyticsStaleTime = 2 * time.Minute
	reportsStaleTime   = time.Minute
)

// Options encapsulates the dependencies required to construct Hooks.
type Options struct {
	API     *apiclient.API
	Cache   *querycache.Cache
	Session *session.Manager
	Bus     *eventbus.Bus
	Logger  *logging.Logger
}

// Hooks is the data layer consumed by the CLI.
type Hooks struct {
	api     *apiclient.API
	cache   *querycache.Cache
	session *session.Manager
	bus     *eventbus.Bus
	logger  *logging.Logger

	auth *Auth
}

// New wires Hooks. Bus and Logger are optional.
func New(opts Options) (*Hooks, error) {
	switch {
	case opts.API == nil:
		return nil, errors.New("hooks require an api client")
	case opts.Cache == nil:
		return nil, errors.New("hooks require a query cache")
	case opts.Session == nil:
		return nil, errors.New("hooks require a session manager")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	h := &Hooks{
		api:     opts.API,
		cache:   opts.Cache,
		session: opts.Session,
		bus:     opts.Bus,
		logger:  opts.Logger,
	}
	h.auth = newAuth(h)
	return h, nil
}

// Cache exposes the underlying query cache for explicit refetches.
func (h *Hooks) Cache() *querycache.Cache { return h.cache }

// notify publishes a transient user-facing notification.
func (h *Hooks) notify(topic, title, message string) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(topic, eventbus.Notification{
		Title:   title,
		Message: message,
		Time:    time.Now(),
	})
}

// Await waits for obs to settle and returns its data. A disabled query
// returns the zero value and no error.
func Await[T any](ctx context.Context, obs *querycache.Observer[T]) (T, error) {
	st, err := obs.Wait(ctx)
	if err != nil {
		return st.Data, err
	}
	if st.Status == querycache.StatusError {
		return st.Data, st.Error
	}
	return st.Data, nil
}
