package apiclient

import (
	"context"

	"jabbusiness-client-go/internal/domain/models"
)

const pathAnalytics = "/jabbusiness/analytics"

type AnalyticsClient struct {
	c *Client
}

// Get fetches the KPI snapshot. Unset optional params are omitted from the
// query string.
func (a *AnalyticsClient) Get(ctx context.Context, params models.AnalyticsParams) (*models.AnalyticsResponse, error) {
	var out models.AnalyticsResponse
	if err := a.c.Get(ctx, pathAnalytics, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
