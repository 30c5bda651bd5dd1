package hooks

import (
	"context"

	"jabbusiness-client-go/internal/domain/models"
	"jabbusiness-client-go/internal/querycache"
)

// Analytics observes the KPI snapshot for params. The query stays idle
// until both dates are set.
func (h *Hooks) Analytics(params models.AnalyticsParams) *querycache.Observer[*models.AnalyticsResponse] {
	return querycache.Observe(h.cache,
		querycache.NewKey(FamilyAnalytics, params),
		func(ctx context.Context) (*models.AnalyticsResponse, error) {
			return h.api.Analytics.Get(ctx, params)
		},
		querycache.QueryOptions{
			StaleTime: analyticsStaleTime,
			Disabled:  !params.Complete(),
		})
}
