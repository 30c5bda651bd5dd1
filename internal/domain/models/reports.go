package models

type ReportFilters struct {
	Type        string   `json:"type,omitempty"`
	Subtype     string   `json:"subtype,omitempty"`
	LocationIDs []string `json:"location_ids,omitempty"`
}

// GenerateReportPayload is the body of POST /jabbusiness/reports/generate.
type GenerateReportPayload struct {
	StartDate string         `json:"start_date" validate:"required"`
	EndDate   string         `json:"end_date" validate:"required"`
	Filters   *ReportFilters `json:"filters,omitempty"`
}

type GeneratedMetadata struct {
	JabbsCount      int     `json:"jabbs_count"`
	ScorePercentage float64 `json:"score_percentage"`
	UpRate          float64 `json:"up_rate"`
	DownRate        float64 `json:"down_rate"`
	GeneratedAt     string  `json:"generated_at"`
}

type GenerateReportResponse struct {
	ReportID   string            `json:"report_id" validate:"required"`
	PDFURL     string            `json:"pdf_url"`
	ShareToken string            `json:"share_token"`
	ShareURL   string            `json:"share_url"`
	Metadata   GeneratedMetadata `json:"metadata"`
}

type ReportMetadata struct {
	JabbsCount      int            `json:"jabbs_count"`
	ScorePercentage float64        `json:"score_percentage"`
	UpRate          float64        `json:"up_rate"`
	DownRate        float64        `json:"down_rate"`
	StartDate       string         `json:"start_date"`
	EndDate         string         `json:"end_date"`
	Filters         *ReportFilters `json:"filters,omitempty"`
}

// Report is one entry of the report history.
type Report struct {
	ReportID     string         `json:"report_id" validate:"required"`
	Metadata     ReportMetadata `json:"metadata"`
	CreatedAt    string         `json:"created_at"`
	ExpiresAt    string         `json:"expires_at"`
	ShareToken   string         `json:"share_token"`
	Views        int            `json:"views" validate:"gte=0"`
	LastViewedAt *string        `json:"last_viewed_at"`
}

type ReportsListResponse struct {
	Reports []Report `json:"reports" validate:"dive"`
	Total   int      `json:"total" validate:"gte=0"`
	Page    int      `json:"page"`
	Pages   int      `json:"pages"`
}

// ListReportsParams defaults to page 1, limit 20 when zero.
type ListReportsParams struct {
	Page  int    `json:"page,omitempty" url:"page,omitempty"`
	Limit int    `json:"limit,omitempty" url:"limit,omitempty"`
	Sort  string `json:"sort,omitempty" url:"sort,omitempty"`
}

// WithDefaults fills page and limit.
func (p ListReportsParams) WithDefaults() ListReportsParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
	return p
}

// ReportByTokenResponse is the guest view of a shared report.
type ReportByTokenResponse struct {
	ReportID  string         `json:"report_id" validate:"required"`
	PDFURL    string         `json:"pdf_url"`
	Metadata  ReportMetadata `json:"metadata"`
	CreatedAt string         `json:"created_at"`
	ExpiresAt string         `json:"expires_at"`
}

// DeleteReportResponse is the acknowledgement of DELETE /jabbusiness/reports/{id}.
type DeleteReportResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
