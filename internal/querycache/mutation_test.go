package querycache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMutationNeverRetries(t *testing.T) {
	c := newTestCache(t, Options{Retry: 3})

	var calls atomic.Int32
	var gotErr error
	m := NewMutation(c, func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", errors.New("rejected")
	}, MutationOptions[string, string]{
		Invalidates: []string{"reports"},
		OnError:     func(_ string, err error) { gotErr = err },
	})

	if _, err := m.Mutate(context.Background(), "r1"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("mutation retried: %d calls", calls.Load())
	}
	if gotErr == nil {
		t.Fatal("OnError not called")
	}
	st := m.State()
	if st.Status != StatusError || st.Variables != "r1" || st.IsPending {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestMutationInvalidatesBeforeOnSuccess(t *testing.T) {
	c := newTestCache(t, Options{StaleTime: time.Minute})
	key := NewKey("reports", nil)

	var fetches atomic.Int32
	obs := Observe(c, key, func(context.Context) (int32, error) {
		return fetches.Add(1), nil
	}, QueryOptions{})
	defer obs.Close()
	_, _ = obs.Wait(context.Background())

	var invalidAtSuccess bool
	m := NewMutation(c, func(context.Context, string) (bool, error) {
		return true, nil
	}, MutationOptions[string, bool]{
		Invalidates: []string{"reports"},
		OnSuccess: func(string, bool) {
			c.mu.Lock()
			invalidAtSuccess = c.entries[key.String()].invalid || c.entries[key.String()].applied > 1
			c.mu.Unlock()
		},
	})

	ok, err := m.Mutate(context.Background(), "r1")
	if err != nil || !ok {
		t.Fatalf("Mutate = %v, %v", ok, err)
	}
	if !invalidAtSuccess {
		t.Fatal("invalidation must happen before OnSuccess")
	}
	waitFor(t, func() bool { return fetches.Load() == 2 })
	if st := m.State(); st.Status != StatusSuccess || !st.Data {
		t.Fatalf("unexpected state %+v", st)
	}

	m.Reset()
	if m.State().Status != StatusIdle {
		t.Fatal("Reset should return to idle")
	}
}
