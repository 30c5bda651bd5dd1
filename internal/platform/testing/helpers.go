package testing

import (
	"strings"
	"testing"
	"time"

	"jabbusiness-client-go/internal/platform/config"
	"jabbusiness-client-go/internal/platform/logging"
)

// SetupTestConfig returns a config pointed at baseURL with an in-memory
// session store and no retry delay worth waiting for.
func SetupTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.AppURL = "http://dashboard.test"
	cfg.API.Timeout = 5 * time.Second
	cfg.Session.Driver = "memory"
	cfg.Cache.RetryDelay = time.Millisecond
	cfg.Log = logging.Config{
		Level:   "debug",
		NoColor: true,
		Console: testWriter{t},
	}
	return cfg
}

// SetupTestLogger returns a debug logger that writes through t.Log.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.New(logging.Config{
		Level:   "debug",
		NoColor: true,
		Console: testWriter{t},
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

// Eventually polls cond until it holds or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
