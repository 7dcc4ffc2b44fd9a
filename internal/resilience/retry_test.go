package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/logger"
)

func newTestExecutor(cfg BreakerConfig) *Executor {
	log := logger.Nop()
	classifier := NewClassifier()
	breakers := NewBreakerSet(cfg, nil)
	return NewExecutor(classifier, breakers, log).
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil })
}

func TestExecute_RetriesRecoverableThenSucceeds(t *testing.T) {
	e := newTestExecutor(BreakerConfig{FailureThreshold: 10, Cooldown: time.Minute})

	calls := 0
	err := e.Execute(context.Background(), "etsy", "publish", "user-1", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if h := e.History("etsy", "publish", "user-1"); len(h) != 0 {
		t.Fatalf("history after success = %d records, want 0", len(h))
	}
}

func TestExecute_BackoffProgression(t *testing.T) {
	e := newTestExecutor(BreakerConfig{FailureThreshold: 10, Cooldown: time.Minute})

	var delays []time.Duration
	e.WithSleep(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	})

	err := e.Execute(context.Background(), "etsy", "publish", "user-1", func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("expected failure after exhausting retries")
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d] = %s, want %s", i, delays[i], want[i])
		}
	}
}

func TestExecute_NonRecoverableFailsImmediately(t *testing.T) {
	e := newTestExecutor(BreakerConfig{FailureThreshold: 10, Cooldown: time.Minute})

	calls := 0
	authErr := &AuthenticationError{Platform: "facebook", Reason: "token revoked"}
	err := e.Execute(context.Background(), "facebook", "publish", "user-1", func(ctx context.Context) error {
		calls++
		return authErr
	})
	if !errors.Is(err, authErr) {
		t.Fatalf("err = %v, want %v", err, authErr)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	h := e.History("facebook", "publish", "user-1")
	if len(h) != 1 {
		t.Fatalf("history = %d records, want 1", len(h))
	}
	if h[0].Kind != KindAuthentication {
		t.Fatalf("history kind = %s, want %s", h[0].Kind, KindAuthentication)
	}
}

func TestExecute_ExhaustionReturnsLastError(t *testing.T) {
	e := newTestExecutor(BreakerConfig{FailureThreshold: 10, Cooldown: time.Minute})

	calls := 0
	err := e.Execute(context.Background(), "etsy", "publish", "user-1", func(ctx context.Context) error {
		calls++
		return errors.New("gremlins") // unknown: one retry allowed
	})
	if err == nil || err.Error() != "gremlins" {
		t.Fatalf("err = %v, want gremlins", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if h := e.History("etsy", "publish", "user-1"); len(h) != 2 {
		t.Fatalf("history = %d records, want 2", len(h))
	}
}

func TestExecute_OpenCircuitRejectsWithoutRetrying(t *testing.T) {
	e := newTestExecutor(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})

	slept := 0
	e.WithSleep(func(ctx context.Context, d time.Duration) error {
		slept++
		return nil
	})

	// Trip the circuit: threshold 1, non-recoverable so a single attempt
	e.Execute(context.Background(), "etsy", "publish", "user-1", func(ctx context.Context) error {
		return &ValidationError{Platform: "etsy", Field: "title", Reason: "empty"}
	})

	calls := 0
	err := e.Execute(context.Background(), "etsy", "publish", "user-1", func(ctx context.Context) error {
		calls++
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("err = %v, want circuit-open rejection", err)
	}
	if calls != 0 {
		t.Fatal("work must not run while the circuit is open")
	}
	if slept != 0 {
		t.Fatal("circuit rejection must not consume backoff sleeps")
	}
}

func TestExecute_HistoryScopedPerActor(t *testing.T) {
	e := newTestExecutor(BreakerConfig{FailureThreshold: 10, Cooldown: time.Minute})

	e.Execute(context.Background(), "etsy", "publish", "user-1", func(ctx context.Context) error {
		return &ValidationError{Platform: "etsy", Field: "title", Reason: "empty"}
	})

	if h := e.History("etsy", "publish", "user-1"); len(h) != 1 {
		t.Fatalf("user-1 history = %d, want 1", len(h))
	}
	if h := e.History("etsy", "publish", "user-2"); len(h) != 0 {
		t.Fatalf("user-2 history = %d, want 0", len(h))
	}
}

func TestExecute_ContextCancellationStopsBackoff(t *testing.T) {
	e := newTestExecutor(BreakerConfig{FailureThreshold: 10, Cooldown: time.Minute})
	e.WithSleep(sleepContext)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Execute(ctx, "etsy", "publish", "user-1", func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
