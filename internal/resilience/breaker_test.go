package resilience

import (
	"errors"
	"testing"
	"time"
)

var errPublish = errors.New("publish failed")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute}, nil)
	b := set.For("etsy", "publish")

	for i := 0; i < 3; i++ {
		if err := b.Call(func() error { return errPublish }); !errors.Is(err, errPublish) {
			t.Fatalf("call %d: err = %v, want %v", i, err, errPublish)
		}
	}

	state := b.State()
	if state.Mode != ModeOpen {
		t.Fatalf("mode = %s, want %s", state.Mode, ModeOpen)
	}
	if state.Failures != 3 {
		t.Fatalf("failures = %d, want 3", state.Failures)
	}
	if state.LastFailure.IsZero() {
		t.Fatal("expected LastFailure to be set")
	}
}

func TestBreaker_OpenRejectsWithoutInvokingWork(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}, nil)
	b := set.For("etsy", "publish")

	b.Call(func() error { return errPublish })
	b.Call(func() error { return errPublish })

	invoked := false
	err := b.Call(func() error {
		invoked = true
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("err = %v, want circuit-open rejection", err)
	}
	if invoked {
		t.Fatal("work must not run while the circuit is open")
	}

	// Rejections do not inflate the consecutive failure count
	if state := b.State(); state.Failures != 2 {
		t.Fatalf("failures = %d, want 2", state.Failures)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute}, nil)
	b := set.For("etsy", "publish")

	b.Call(func() error { return errPublish })
	b.Call(func() error { return errPublish })
	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("err = %v", err)
	}

	state := b.State()
	if state.Mode != ModeClosed {
		t.Fatalf("mode = %s, want %s", state.Mode, ModeClosed)
	}
	if state.Failures != 0 {
		t.Fatalf("failures = %d, want 0", state.Failures)
	}
}

func TestBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 2, Cooldown: 20 * time.Millisecond}, nil)
	b := set.For("etsy", "publish")

	b.Call(func() error { return errPublish })
	b.Call(func() error { return errPublish })
	if b.State().Mode != ModeOpen {
		t.Fatal("expected circuit open")
	}

	time.Sleep(30 * time.Millisecond)

	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if state := b.State(); state.Mode != ModeClosed {
		t.Fatalf("mode after probe = %s, want %s", state.Mode, ModeClosed)
	}
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 2, Cooldown: 20 * time.Millisecond}, nil)
	b := set.For("etsy", "publish")

	b.Call(func() error { return errPublish })
	b.Call(func() error { return errPublish })

	time.Sleep(30 * time.Millisecond)

	if err := b.Call(func() error { return errPublish }); !errors.Is(err, errPublish) {
		t.Fatalf("probe err = %v, want %v", err, errPublish)
	}
	if state := b.State(); state.Mode != ModeOpen {
		t.Fatalf("mode after failed probe = %s, want %s", state.Mode, ModeOpen)
	}
}

func TestBreakerSet_IsolatesCircuitsPerKey(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}, nil)

	etsy := set.For("etsy", "publish")
	etsy.Call(func() error { return errPublish })
	etsy.Call(func() error { return errPublish })

	if set.State("etsy", "publish").Mode != ModeOpen {
		t.Fatal("expected etsy:publish open")
	}
	if set.State("etsy", "validate").Mode != ModeClosed {
		t.Fatal("expected etsy:validate unaffected")
	}
	if set.State("shopify", "publish").Mode != ModeClosed {
		t.Fatal("expected shopify:publish unaffected")
	}

	if got := set.For("etsy", "publish"); got != etsy {
		t.Fatal("expected the same circuit instance per key")
	}
}

func TestBreakerSet_DefaultsApplied(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{}, nil)
	state := set.State("etsy", "publish")
	if state.Threshold != 5 {
		t.Fatalf("threshold = %d, want 5", state.Threshold)
	}
	if state.Cooldown != 300*time.Second {
		t.Fatalf("cooldown = %s, want 300s", state.Cooldown)
	}
}

func TestBreaker_RecordsLastFailureTime(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 5, Cooldown: time.Minute}, nil)
	b := set.For("etsy", "publish")

	at := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return at }

	b.Call(func() error { return errPublish })

	state := b.State()
	if !state.LastFailure.Equal(at) {
		t.Fatalf("LastFailure = %v, want %v", state.LastFailure, at)
	}

	b.Call(func() error { return nil })
	b.Call(func() error { return errPublish })
	if got := b.State().LastFailure; !got.Equal(at) {
		t.Fatalf("LastFailure = %v, want %v", got, at)
	}
}
