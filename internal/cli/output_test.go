package cli

import (
	"testing"
	"time"
)

func TestRangeFlagsResolve(t *testing.T) {
	now := time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		flags     rangeFlags
		start     string
		end       string
		wantError bool
	}{
		{name: "last 7 days", flags: rangeFlags{days: 7}, start: "2024-03-24", end: "2024-03-31"},
		{name: "last 30 days", flags: rangeFlags{days: 30}, start: "2024-03-01", end: "2024-03-31"},
		{name: "last 90 days", flags: rangeFlags{days: 90}, start: "2024-01-01", end: "2024-03-31"},
		{name: "explicit range wins", flags: rangeFlags{days: 7, start: "2024-01-01", end: "2024-01-31"}, start: "2024-01-01", end: "2024-01-31"},
		{name: "start until today", flags: rangeFlags{days: 30, start: "2024-03-10"}, start: "2024-03-10", end: "2024-03-31"},
		{name: "days relative to end", flags: rangeFlags{days: 7, end: "2024-02-10"}, start: "2024-02-03", end: "2024-02-10"},
		{name: "unsupported quick range", flags: rangeFlags{days: 14}, wantError: true},
		{name: "bad date", flags: rangeFlags{start: "01/02/2024"}, wantError: true},
		{name: "inverted range", flags: rangeFlags{start: "2024-02-01", end: "2024-01-01"}, wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := tt.flags.resolve(now)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got %s..%s", start, end)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if start != tt.start || end != tt.end {
				t.Fatalf("got %s..%s, want %s..%s", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestShareURL(t *testing.T) {
	if got := shareURL("https://app.jabb.test/", "abc123"); got != "https://app.jabb.test/report/abc123" {
		t.Fatalf("shareURL = %s", got)
	}
}

func TestSignedPercent(t *testing.T) {
	cases := map[float64]string{5.24: "+5.2%", -3: "-3.0%", 0: "0.0%"}
	for in, want := range cases {
		if got := signedPercent(in); got != want {
			t.Errorf("signedPercent(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestTokenClaims(t *testing.T) {
	if _, err := tokenClaims("not-a-jwt"); err == nil {
		t.Fatal("expected error for opaque token")
	}
}
