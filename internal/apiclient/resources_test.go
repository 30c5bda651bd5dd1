package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"jabbusiness-client-go/internal/domain/models"
	platformerrors "jabbusiness-client-go/internal/platform/errors"
	"jabbusiness-client-go/internal/platform/observability"
)

func TestLoginPostsCredentials(t *testing.T) {
	var body models.LoginPayload
	var path, method string
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, models.LoginResponse{
			Success: true,
			Token:   "tok",
			User:    &models.User{ID: "u1", Email: "a@b.c", Role: "client"},
		})
	}, "")

	resp, err := api.Auth.Login(context.Background(), models.LoginPayload{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if method != http.MethodPost || path != "/api/v1/clients/auth/login" {
		t.Errorf("unexpected request %s %s", method, path)
	}
	if body.Username != "alice" || body.Password != "pw" {
		t.Errorf("unexpected body %+v", body)
	}
	if !resp.Success || resp.Token != "tok" || resp.User.Email != "a@b.c" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestLoginRejected(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Invalid credentials"})
	}, "")

	_, err := api.Auth.Login(context.Background(), models.LoginPayload{Username: "a", Password: "b"})
	if platformerrors.StatusOf(err) != 401 || platformerrors.MessageOf(err) != "Invalid credentials" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAnalyticsOmitsEmptyParams(t *testing.T) {
	var rawQuery string
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, models.AnalyticsResponse{TotalJabbs: 12, AvgScore: 71.5})
	}, "abc")

	resp, err := api.Analytics.Get(context.Background(), models.AnalyticsParams{StartDate: "2024-01-01", EndDate: "2024-01-31"})
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rawQuery != "end_date=2024-01-31&start_date=2024-01-01" {
		t.Errorf("query = %q", rawQuery)
	}
	if strings.Contains(rawQuery, "location_id") || strings.Contains(rawQuery, "type") {
		t.Errorf("empty params must be omitted: %q", rawQuery)
	}
	if resp.TotalJabbs != 12 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestReportsListDefaults(t *testing.T) {
	var q map[string][]string
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		writeJSON(w, http.StatusOK, models.ReportsListResponse{Page: 1, Pages: 1})
	}, "abc")

	if _, err := api.Reports.List(context.Background(), models.ListReportsParams{Sort: "-created_at"}); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if q["page"][0] != "1" || q["limit"][0] != "20" || q["sort"][0] != "-created_at" {
		t.Fatalf("unexpected query %v", q)
	}
}

func TestGenerateAndDelete(t *testing.T) {
	var generated models.GenerateReportPayload
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/jabbusiness/reports/generate":
			_ = json.NewDecoder(r.Body).Decode(&generated)
			writeJSON(w, http.StatusOK, models.GenerateReportResponse{ReportID: "r1", ShareToken: "s1"})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/jabbusiness/reports/r1":
			writeJSON(w, http.StatusOK, models.DeleteReportResponse{Success: true})
		default:
			http.NotFound(w, r)
		}
	}, "abc")

	ctx := context.Background()
	payload := models.GenerateReportPayload{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		Filters:   &models.ReportFilters{Type: "store", LocationIDs: []string{"l1"}},
	}
	gen, err := api.Reports.Generate(ctx, payload)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if gen.ReportID != "r1" || generated.Filters == nil || generated.Filters.LocationIDs[0] != "l1" {
		t.Fatalf("unexpected generate round trip: %+v / %+v", gen, generated)
	}

	del, err := api.Reports.Delete(ctx, "r1")
	if err != nil || !del.Success {
		t.Fatalf("Delete = %+v, %v", del, err)
	}
}

func TestGetByTokenAndEvents(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/jabbusiness/reports/by-token/share-1":
			writeJSON(w, http.StatusOK, models.ReportByTokenResponse{ReportID: "r9"})
		case "/api/v1/jabbusiness/quick-jabbs":
			if r.URL.Query().Get("type") != "store" || r.URL.Query().Has("subtype") {
				http.Error(w, `{"error":"bad filter"}`, http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, models.QuickJabbsResponse{
				Jabbs: []models.QuickJabb{{ID: "j1", Status: "open"}},
				Total: 1, Page: 1, Pages: 1,
			})
		case "/api/v1/jabbusiness/quick-jabbs/j1":
			writeJSON(w, http.StatusOK, models.QuickJabb{ID: "j1", Type: "store"})
		default:
			http.NotFound(w, r)
		}
	}, "")

	ctx := context.Background()
	shared, err := api.Reports.GetByToken(ctx, "share-1")
	if err != nil || shared.ReportID != "r9" {
		t.Fatalf("GetByToken = %+v, %v", shared, err)
	}
	list, err := api.Events.List(ctx, models.QuickJabbsParams{Type: "store"})
	if err != nil || len(list.Jabbs) != 1 {
		t.Fatalf("Events.List = %+v, %v", list, err)
	}
	one, err := api.Events.Get(ctx, "j1")
	if err != nil || one.Type != "store" {
		t.Fatalf("Events.Get = %+v, %v", one, err)
	}
}

func TestDownloadURL(t *testing.T) {
	c, err := New(Options{BaseURL: "http://127.0.0.1:5500/api/v1"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	reports := NewAPI(c).Reports

	if got := reports.DownloadURL("r1", ""); got != "http://127.0.0.1:5500/api/v1/jabbusiness/reports/r1/download" {
		t.Errorf("DownloadURL = %q", got)
	}
	if got := reports.DownloadURL("r1", "s1"); got != "http://127.0.0.1:5500/api/v1/jabbusiness/reports/r1/download?token=s1" {
		t.Errorf("DownloadURL with token = %q", got)
	}
}

func TestDownloadStreamsBytes(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/jabbusiness/reports/r1/download" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("token") != "s1" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid share token"})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	}, "")

	var buf bytes.Buffer
	n, err := api.Reports.Download(context.Background(), "r1", "s1", &buf)
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if n != int64(len(pdf)) || !bytes.Equal(buf.Bytes(), pdf) {
		t.Fatalf("unexpected download %d bytes %q", n, buf.String())
	}

	_, err = api.Reports.Download(context.Background(), "r1", "wrong", io.Discard)
	if platformerrors.StatusOf(err) != http.StatusForbidden || platformerrors.MessageOf(err) != "Invalid share token" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDownloadIsInstrumented(t *testing.T) {
	shutdown, err := observability.Setup(context.Background(), observability.Config{Enabled: true},
		slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})))
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	pdf := []byte("%PDF-1.4 fake")
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "s1" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Invalid share token"})
			return
		}
		_, _ = w.Write(pdf)
	}, "")

	if _, err := api.Reports.Download(context.Background(), "r1", "s1", io.Discard); err != nil {
		t.Fatalf("Download error: %v", err)
	}
	_, _ = api.Reports.Download(context.Background(), "r1", "wrong", io.Discard)

	got := map[string]observability.Summary{}
	for _, s := range observability.Summaries() {
		got[s.Name] = s
	}
	if got["api.span_ms"].Count != 2 {
		t.Errorf("expected 2 spans, got %+v", got["api.span_ms"])
	}
	if got["api.request_ms"].Count != 2 {
		t.Errorf("expected 2 request datapoints, got %+v", got["api.request_ms"])
	}
	if s := got["api.download_bytes"]; s.Count != 1 || s.Sum != float64(len(pdf)) {
		t.Errorf("unexpected download bytes summary %+v", s)
	}
}
