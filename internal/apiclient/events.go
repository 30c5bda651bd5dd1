package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"jabbusiness-client-go/internal/domain/models"
)

const pathQuickJabbs = "/jabbusiness/quick-jabbs"

type EventsClient struct {
	c *Client
}

func (e *EventsClient) List(ctx context.Context, params models.QuickJabbsParams) (*models.QuickJabbsResponse, error) {
	var out models.QuickJabbsResponse
	if err := e.c.Get(ctx, pathQuickJabbs, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *EventsClient) Get(ctx context.Context, id string) (*models.QuickJabb, error) {
	var out models.QuickJabb
	if err := e.c.Do(ctx, http.MethodGet, pathQuickJabbs+"/"+url.PathEscape(id), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}
