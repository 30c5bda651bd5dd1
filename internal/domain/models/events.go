package models

// QuickJabbsParams filters the event list. Empty fields are not sent.
type QuickJabbsParams struct {
	Page       int    `json:"page,omitempty" url:"page,omitempty"`
	Limit      int    `json:"limit,omitempty" url:"limit,omitempty"`
	Type       string `json:"type,omitempty" url:"type,omitempty"`
	Subtype    string `json:"subtype,omitempty" url:"subtype,omitempty"`
	LocationID string `json:"location_id,omitempty" url:"location_id,omitempty"`
	StartDate  string `json:"start_date,omitempty" url:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty" url:"end_date,omitempty"`
}

type Location struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// QuickJabb is a single customer-feedback event.
type QuickJabb struct {
	ID              string    `json:"id" validate:"required"`
	Type            string    `json:"type"`
	Subtype         string    `json:"subtype"`
	ScorePercentage float64   `json:"score_percentage"`
	JabberName      string    `json:"jabber_name"`
	Location        *Location `json:"location,omitempty"`
	TargetName      string    `json:"target_name,omitempty"`
	CreatedAt       string    `json:"created_at"`
	Status          string    `json:"status"`
}

type QuickJabbsResponse struct {
	Jabbs []QuickJabb `json:"jabbs" validate:"dive"`
	Total int         `json:"total" validate:"gte=0"`
	Page  int         `json:"page"`
	Pages int         `json:"pages"`
}
