package models

// AnalyticsParams selects an analytics snapshot. Both dates must be set for
// a fetch to happen.
type AnalyticsParams struct {
	StartDate  string `json:"start_date,omitempty" url:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty" url:"end_date,omitempty"`
	LocationID string `json:"location_id,omitempty" url:"location_id,omitempty"`
	Type       string `json:"type,omitempty" url:"type,omitempty"`
}

// Complete reports whether the date range is fully specified.
func (p AnalyticsParams) Complete() bool {
	return p.StartDate != "" && p.EndDate != ""
}

type ScorePoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// Severity of a negative theme.
type Severity string

const (
	SeverityMinor    Severity = "MINEUR"
	SeverityMajor    Severity = "MAJEUR"
	SeverityCritical Severity = "CRITIQUE"
)

type Theme struct {
	Label    string   `json:"label"`
	Mentions int      `json:"mentions"`
	Severity Severity `json:"severity" validate:"omitempty,oneof=MINEUR MAJEUR CRITIQUE"`
}

type RecentJabb struct {
	ID              string  `json:"id" validate:"required"`
	Type            string  `json:"type"`
	Subtype         string  `json:"subtype"`
	ScorePercentage float64 `json:"score_percentage"`
	JabberName      string  `json:"jabber_name"`
	CreatedAt       string  `json:"created_at"`
}

// AnalyticsResponse is the dashboard KPI snapshot.
type AnalyticsResponse struct {
	TotalJabbs        int          `json:"total_jabbs" validate:"gte=0"`
	AvgScore          float64      `json:"avg_score" validate:"gte=0,lte=100"`
	LocationsCovered  int          `json:"locations_covered" validate:"gte=0"`
	TrendPct          float64      `json:"trend_pct"`
	UpRate            float64      `json:"up_rate"`
	DownRate          float64      `json:"down_rate"`
	ScoreTrend        []ScorePoint `json:"score_trend" validate:"dive"`
	TopThemesNegative []Theme      `json:"top_themes_negative" validate:"dive"`
	RecentJabbs       []RecentJabb `json:"recent_jabbs" validate:"dive"`
}
