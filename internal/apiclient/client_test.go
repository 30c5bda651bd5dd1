package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"jabbusiness-client-go/internal/domain/models"
	platformerrors "jabbusiness-client-go/internal/platform/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *API {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL + "/api/v1/", Tokens: StaticToken(token)})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return NewAPI(c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "::nope"}); !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestBearerHeaderOnlyWhenTokenPresent(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "with token", token: "abc", want: "Bearer abc"},
		{name: "without token", token: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth, gotCT, gotID string
			api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				gotCT = r.Header.Get("Content-Type")
				gotID = r.Header.Get(HeaderRequestID)
				writeJSON(w, http.StatusOK, models.ReportsListResponse{Page: 1, Pages: 1})
			}, tt.token)

			if _, err := api.Reports.List(context.Background(), models.ListReportsParams{}); err != nil {
				t.Fatalf("List error: %v", err)
			}
			if gotAuth != tt.want {
				t.Errorf("Authorization = %q, want %q", gotAuth, tt.want)
			}
			if gotCT != "application/json" {
				t.Errorf("Content-Type = %q", gotCT)
			}
			if gotID == "" {
				t.Error("expected a request id")
			}
		})
	}
}

func TestTokenReadPerRequest(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, models.QuickJabbsResponse{})
	}))
	defer srv.Close()

	src := &mutableToken{}
	c, err := New(Options{BaseURL: srv.URL, Tokens: src})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	api := NewAPI(c)

	_, _ = api.Events.List(context.Background(), models.QuickJabbsParams{})
	src.value = "later"
	_, _ = api.Events.List(context.Background(), models.QuickJabbsParams{})

	if len(seen) != 2 || seen[0] != "" || seen[1] != "Bearer later" {
		t.Fatalf("unexpected headers: %q", seen)
	}
}

type mutableToken struct{ value string }

func (m *mutableToken) Token(context.Context) string { return m.value }

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "error field", status: 404, body: `{"error":"Report not found"}`, wantMsg: "Report not found"},
		{name: "message field", status: 400, body: `{"message":"bad dates"}`, wantMsg: "bad dates"},
		{name: "error wins over message", status: 409, body: `{"error":"e","message":"m"}`, wantMsg: "e"},
		{name: "non json body", status: 502, body: `<html>bad gateway</html>`, wantMsg: "API Error: Bad Gateway"},
		{name: "empty body", status: 500, body: ``, wantMsg: "API Error: Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, "abc")

			_, err := api.Reports.Delete(context.Background(), "r1")
			if !platformerrors.IsKind(err, platformerrors.KindAPI) {
				t.Fatalf("expected api error, got %v", err)
			}
			if got := platformerrors.StatusOf(err); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
			if got := platformerrors.MessageOf(err); got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	_, err = NewAPI(c).Analytics.Get(context.Background(), models.AnalyticsParams{StartDate: "a", EndDate: "b"})
	if !platformerrors.IsKind(err, platformerrors.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"reports": [`},
		{name: "wrong type", body: `{"reports": "nope"}`},
		{name: "missing required id", body: `{"reports":[{"views":1}],"total":1,"page":1,"pages":1}`},
		{name: "negative total", body: `{"reports":[],"total":-4,"page":1,"pages":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}, "")

			_, err := api.Reports.List(context.Background(), models.ListReportsParams{})
			if !platformerrors.IsKind(err, platformerrors.KindSchema) {
				t.Fatalf("expected schema error, got %v", err)
			}
		})
	}
}

func TestDoForwardsExtraHeaders(t *testing.T) {
	var got string
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Trace")
		w.WriteHeader(http.StatusNoContent)
	}, "")

	if err := api.Client.Do(context.Background(), http.MethodGet, "/ping", nil, nil, map[string]string{"X-Trace": "t1"}); err != nil {
		t.Fatalf("Do error: %v", err)
	}
	if got != "t1" {
		t.Fatalf("X-Trace = %q", got)
	}
}
