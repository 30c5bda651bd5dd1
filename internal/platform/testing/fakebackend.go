package testing

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"jabbusiness-client-go/internal/domain/models"
)

// APIPrefix is where the fake mounts the dashboard API.
const APIPrefix = "/api/v1"

// FakeSecret signs the tokens issued by the fake login.
var FakeSecret = []byte("fake-backend-secret")

// FakePDF is the body served by the download route.
var FakePDF = []byte("%PDF-1.4\n% fake flash report\n")

type failure struct {
	status  int
	message string
}

// Backend is an in-process JABBusiness API. It keeps reports in memory,
// counts hits per route and can be told to fail or slow down.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	users     map[string]models.User
	passwords map[string]string
	tokens    map[string]string
	reports   map[string]*models.Report
	analytics models.AnalyticsResponse
	events    []models.QuickJabb
	hits      map[string]int
	failures  map[string][]failure
	latency   time.Duration
}

// NewBackend starts a fake backend and stops it when the test ends. It
// knows one user, demo@jabb.test / secret.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		users:     make(map[string]models.User),
		passwords: make(map[string]string),
		tokens:    make(map[string]string),
		reports:   make(map[string]*models.Report),
		hits:      make(map[string]int),
		failures:  make(map[string][]failure),
		analytics: models.AnalyticsResponse{
			TotalJabbs:       128,
			AvgScore:         72.5,
			LocationsCovered: 4,
			TrendPct:         5.2,
			UpRate:           0.61,
			DownRate:         0.39,
			TopThemesNegative: []models.Theme{
				{Label: "Attente", Mentions: 12, Severity: models.SeverityMajor},
			},
		},
		events: []models.QuickJabb{
			{ID: "qj-1", Type: "restaurant", Subtype: "service", ScorePercentage: 80, JabberName: "Alice", CreatedAt: "2024-01-02T10:00:00Z", Status: "published"},
			{ID: "qj-2", Type: "restaurant", Subtype: "food", ScorePercentage: 40, JabberName: "Bob", CreatedAt: "2024-01-03T12:00:00Z", Status: "published"},
			{ID: "qj-3", Type: "hotel", Subtype: "room", ScorePercentage: 90, JabberName: "Carol", CreatedAt: "2024-01-04T08:30:00Z", Status: "published"},
		},
	}
	b.AddUser("demo@jabb.test", "secret", models.User{ID: "u-1", Email: "demo@jabb.test", Role: "client", ClientID: "c-1"})

	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base URL clients should be configured with.
func (b *Backend) URL() string {
	return b.Server.URL + APIPrefix
}

func (b *Backend) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(b.instrument())

	api := engine.Group(APIPrefix)
	api.POST("/clients/auth/login", b.login)
	api.GET("/jabbusiness/reports/by-token/:token", b.reportByToken)
	api.GET("/jabbusiness/reports/:id/download", b.download)

	secured := api.Group("")
	secured.Use(b.requireBearer())
	secured.GET("/jabbusiness/analytics", b.getAnalytics)
	secured.GET("/jabbusiness/reports", b.listReports)
	secured.POST("/jabbusiness/reports/generate", b.generateReport)
	secured.DELETE("/jabbusiness/reports/:id", b.deleteReport)
	secured.GET("/jabbusiness/quick-jabbs", b.listEvents)
	secured.GET("/jabbusiness/quick-jabbs/:id", b.getEvent)
	return engine
}

// instrument counts hits and applies the configured latency and failures.
func (b *Backend) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + strings.TrimPrefix(c.FullPath(), APIPrefix)

		b.mu.Lock()
		b.hits[route]++
		latency := b.latency
		var fail *failure
		if queue := b.failures[route]; len(queue) > 0 {
			fail = &queue[0]
			b.failures[route] = queue[1:]
		}
		b.mu.Unlock()

		if latency > 0 {
			time.Sleep(latency)
		}
		if fail != nil {
			if fail.message == "" {
				c.Status(fail.status)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(fail.status, gin.H{"error": fail.message})
			return
		}
		c.Next()
	}
}

func (b *Backend) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !b.validToken(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func (b *Backend) validToken(token string) bool {
	if token == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tokens[token]
	return ok
}

// AddUser registers credentials for the login route.
func (b *Backend) AddUser(username, password string, user models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = user
	b.passwords[username] = password
}

// IssueToken returns a valid bearer token for username without a login
// round trip.
func (b *Backend) IssueToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(username)
}

func (b *Backend) issueLocked(username string) string {
	user := b.users[username]
	claims := jwt.MapClaims{
		"sub":       user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"client_id": user.ClientID,
		"iat":       time.Now().Unix(),
		"exp":       time.Now().Add(24 * time.Hour).Unix(),
		"jti":       uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(FakeSecret)
	if err != nil {
		panic(err)
	}
	b.tokens[signed] = username
	return signed
}

// Hits returns how many requests reached route, e.g. "GET /jabbusiness/reports".
func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

// FailNext makes the next request to route answer status. An empty
// message sends no body.
func (b *Backend) FailNext(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = append(b.failures[route], failure{status: status, message: message})
}

// SetLatency delays every response.
func (b *Backend) SetLatency(d time.Duration) {
	b.mu.Lock()
	b.latency = d
	b.mu.Unlock()
}

// SeedReport stores a report and returns it.
func (b *Backend) SeedReport(startDate, endDate string) models.Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.createLocked(models.GenerateReportPayload{StartDate: startDate, EndDate: endDate})
}

// ReportCount is the number of stored reports.
func (b *Backend) ReportCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reports)
}

func (b *Backend) createLocked(p models.GenerateReportPayload) *models.Report {
	now := time.Now().UTC()
	r := &models.Report{
		ReportID: uuid.NewString(),
		Metadata: models.ReportMetadata{
			JabbsCount:      b.analytics.TotalJabbs,
			ScorePercentage: b.analytics.AvgScore,
			UpRate:          b.analytics.UpRate,
			DownRate:        b.analytics.DownRate,
			StartDate:       p.StartDate,
			EndDate:         p.EndDate,
			Filters:         p.Filters,
		},
		// nanosecond precision keeps the newest-first order stable
		CreatedAt:  now.Format(time.RFC3339Nano),
		ExpiresAt:  now.Add(30 * 24 * time.Hour).Format(time.RFC3339),
		ShareToken: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	b.reports[r.ReportID] = r
	return r
}

func (b *Backend) login(c *gin.Context) {
	var payload models.LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if pw, ok := b.passwords[payload.Username]; !ok || pw != payload.Password {
		c.JSON(http.StatusOK, models.LoginResponse{Success: false, Error: "Invalid credentials"})
		return
	}
	user := b.users[payload.Username]
	c.JSON(http.StatusOK, models.LoginResponse{
		Success: true,
		Token:   b.issueLocked(payload.Username),
		User:    &user,
	})
}

func (b *Backend) getAnalytics(c *gin.Context) {
	if c.Query("start_date") == "" || c.Query("end_date") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return
	}
	trend, err := scoreTrend(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b.mu.Lock()
	resp := b.analytics
	resp.TotalJabbs += len(b.reports)
	b.mu.Unlock()
	resp.ScoreTrend = trend

	if t := c.Query("type"); t != "" {
		resp.RecentJabbs = nil
		for _, ev := range b.events {
			if ev.Type == t {
				resp.RecentJabbs = append(resp.RecentJabbs, models.RecentJabb{
					ID: ev.ID, Type: ev.Type, Subtype: ev.Subtype,
					ScorePercentage: ev.ScorePercentage, JabberName: ev.JabberName, CreatedAt: ev.CreatedAt,
				})
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (b *Backend) listReports(c *gin.Context) {
	page := atoiDefault(c.Query("page"), 1)
	limit := atoiDefault(c.Query("limit"), 20)

	b.mu.Lock()
	all := make([]models.Report, 0, len(b.reports))
	for _, r := range b.reports {
		all = append(all, *r)
	}
	b.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt > all[j].CreatedAt })
	if c.Query("sort") == "oldest" {
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt < all[j].CreatedAt })
	}

	total := len(all)
	pages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	c.JSON(http.StatusOK, models.ReportsListResponse{
		Reports: all[start:end],
		Total:   total,
		Page:    page,
		Pages:   pages,
	})
}

func (b *Backend) generateReport(c *gin.Context) {
	var payload models.GenerateReportPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.StartDate == "" || payload.EndDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return
	}

	b.mu.Lock()
	r := b.createLocked(payload)
	b.mu.Unlock()

	c.JSON(http.StatusOK, models.GenerateReportResponse{
		ReportID:   r.ReportID,
		PDFURL:     fmt.Sprintf("%s/jabbusiness/reports/%s/download", APIPrefix, r.ReportID),
		ShareToken: r.ShareToken,
		ShareURL:   "/report/" + r.ShareToken,
		Metadata: models.GeneratedMetadata{
			JabbsCount:      r.Metadata.JabbsCount,
			ScorePercentage: r.Metadata.ScorePercentage,
			UpRate:          r.Metadata.UpRate,
			DownRate:        r.Metadata.DownRate,
			GeneratedAt:     r.CreatedAt,
		},
	})
}

func (b *Backend) deleteReport(c *gin.Context) {
	id := c.Param("id")
	b.mu.Lock()
	_, ok := b.reports[id]
	delete(b.reports, id)
	b.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	c.JSON(http.StatusOK, models.DeleteReportResponse{Success: true, Message: "Report deleted"})
}

func (b *Backend) reportByToken(c *gin.Context) {
	r := b.findByShareToken(c.Param("token"), true)
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found or expired"})
		return
	}
	c.JSON(http.StatusOK, models.ReportByTokenResponse{
		ReportID:  r.ReportID,
		PDFURL:    fmt.Sprintf("%s/jabbusiness/reports/%s/download?token=%s", APIPrefix, r.ReportID, r.ShareToken),
		Metadata:  r.Metadata,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	})
}

func (b *Backend) findByShareToken(token string, view bool) *models.Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.reports {
		if r.ShareToken == token {
			if view {
				r.Views++
				now := time.Now().UTC().Format(time.RFC3339)
				r.LastViewedAt = &now
			}
			cp := *r
			return &cp
		}
	}
	return nil
}

func (b *Backend) download(c *gin.Context) {
	id := c.Param("id")
	b.mu.Lock()
	r, ok := b.reports[id]
	var shareToken string
	if ok {
		shareToken = r.ShareToken
	}
	b.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	bearer := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if c.Query("token") != shareToken && !b.validToken(bearer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="flash-report-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", FakePDF)
}

func (b *Backend) listEvents(c *gin.Context) {
	page := atoiDefault(c.Query("page"), 1)
	limit := atoiDefault(c.Query("limit"), 20)

	matched := make([]models.QuickJabb, 0, len(b.events))
	for _, ev := range b.events {
		if t := c.Query("type"); t != "" && ev.Type != t {
			continue
		}
		if s := c.Query("subtype"); s != "" && ev.Subtype != s {
			continue
		}
		matched = append(matched, ev)
	}

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	c.JSON(http.StatusOK, models.QuickJabbsResponse{
		Jabbs: matched[start:end],
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	})
}

func (b *Backend) getEvent(c *gin.Context) {
	id := c.Param("id")
	for _, ev := range b.events {
		if ev.ID == id {
			c.JSON(http.StatusOK, ev)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Quick JABB not found"})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// maxTrendPoints caps the daily score trend to the most recent days.
const maxTrendPoints = 30

func scoreTrend(start, end string) ([]models.ScorePoint, error) {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date %q", start)
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date %q", end)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("start_date must not be after end_date")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxTrendPoints {
		from = to.AddDate(0, 0, -(maxTrendPoints - 1))
	}
	points := make([]models.ScorePoint, 0, maxTrendPoints)
	for d, i := from, 0; !d.After(to); d, i = d.AddDate(0, 0, 1), i+1 {
		points = append(points, models.ScorePoint{
			Date:  d.Format("2006-01-02"),
			Score: float64(60 + (i*7)%35),
		})
	}
	return points, nil
}
