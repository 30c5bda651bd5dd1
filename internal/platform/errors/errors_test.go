package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindConfig, "load", "failed to load config",
				errors.New("file not found")),
			contains: []string{"[config:load]", "failed to load config", "file not found"},
		},
		{
			name:     "error without cause",
			err:      New(KindTransport, "GET /x", "connection refused"),
			contains: []string{"[transport:GET /x]", "connection refused"},
		},
		{
			name:     "api error",
			err:      API("POST /clients/auth/login", 401, "Invalid credentials"),
			contains: []string{"[api:POST /clients/auth/login]", "Invalid credentials"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindConfig, "test", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrapKeepsTypedError(t *testing.T) {
	inner := API("GET /r", 500, "boom")
	outer := Wrap(KindTransport, "other", "ignored", fmt.Errorf("ctx: %w", inner))
	if outer != inner {
		t.Fatalf("expected Wrap to return the typed error in the chain")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(KindConfig, "op", "msg", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindSchema, "test", "message"),
			kind:     KindSchema,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      fmt.Errorf("outer: %w", API("op", 404, "missing")),
			kind:     KindAPI,
			expected: true,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindConfig, "test", "message"),
			kind:     KindTransport,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindConfig,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsKind(tt.err, tt.kind)
			if result != tt.expected {
				t.Errorf("IsKind() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestStatusAndMessageOf(t *testing.T) {
	err := fmt.Errorf("wrap: %w", API("DELETE /r/1", 404, "Report not found"))
	if got := StatusOf(err); got != 404 {
		t.Errorf("StatusOf() = %d, want 404", got)
	}
	if got := MessageOf(err); got != "Report not found" {
		t.Errorf("MessageOf() = %q", got)
	}
	if got := StatusOf(errors.New("plain")); got != 0 {
		t.Errorf("StatusOf(plain) = %d, want 0", got)
	}
	if got := MessageOf(errors.New("plain")); got != "plain" {
		t.Errorf("MessageOf(plain) = %q", got)
	}
	if got := MessageOf(nil); got != "" {
		t.Errorf("MessageOf(nil) = %q", got)
	}
}
