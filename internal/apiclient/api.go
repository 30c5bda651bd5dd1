package apiclient

// API groups the resource clients over one Client.
type API struct {
	Client    *Client
	Auth      *AuthClient
	Analytics *AnalyticsClient
	Reports   *ReportsClient
	Events    *EventsClient
}

func NewAPI(c *Client) *API {
	return &API{
		Client:    c,
		Auth:      &AuthClient{c: c},
		Analytics: &AnalyticsClient{c: c},
		Reports:   &ReportsClient{c: c},
		Events:    &EventsClient{c: c},
	}
}
