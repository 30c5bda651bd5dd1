package hooks

import (
	"context"

	"jabbusiness-client-go/internal/domain/models"
	"jabbusiness-client-go/internal/querycache"
)

// Events observes a filtered page of Quick JABBs.
func (h *Hooks) Events(params models.QuickJabbsParams) *querycache.Observer[*models.QuickJabbsResponse] {
	return querycache.Observe(h.cache,
		querycache.NewKey(FamilyEvents, params),
		func(ctx context.Context) (*models.QuickJabbsResponse, error) {
			return h.api.Events.List(ctx, params)
		},
		querycache.QueryOptions{})
}

func (h *Hooks) Event(id string) *querycache.Observer[*models.QuickJabb] {
	return querycache.Observe(h.cache,
		querycache.NewKey(FamilyEvent, id),
		func(ctx context.Context) (*models.QuickJabb, error) {
			return h.api.Events.Get(ctx, id)
		},
		querycache.QueryOptions{Disabled: id == ""})
}
