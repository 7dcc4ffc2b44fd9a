package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestClassify_PatternTable(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name        string
		err         error
		wantKind    ErrorKind
		recoverable bool
	}{
		{"connection refused", errors.New("dial tcp: connection refused"), KindNetwork, true},
		{"connection reset", errors.New("read: connection reset by peer"), KindNetwork, true},
		{"no such host", errors.New("lookup api.example.com: no such host"), KindNetwork, true},
		{"timeout", errors.New("request timeout after 30s"), KindTimeout, true},
		{"timed out", errors.New("operation timed out"), KindTimeout, true},
		{"unauthorized", errors.New("server returned 401 Unauthorized"), KindAuthentication, false},
		{"invalid credentials", errors.New("invalid credentials provided"), KindAuthentication, false},
		{"element not found", errors.New("element not found: #submit-button"), KindElementNotFound, true},
		{"selector", errors.New("waiting for selector .post-box failed"), KindElementNotFound, true},
		{"rate limit", errors.New("rate limit exceeded"), KindRateLimit, true},
		{"429", errors.New("server returned status 429"), KindRateLimit, true},
		{"throttled", errors.New("request throttled by platform"), KindRateLimit, true},
		{"captcha", errors.New("captcha required before posting"), KindAntiBot, false},
		{"challenge", errors.New("security challenge presented"), KindAntiBot, false},
		{"session expired", errors.New("session expired, please re-authenticate"), KindSessionExpired, true},
		{"maintenance", errors.New("platform is down for maintenance"), KindMaintenance, true},
		{"503", errors.New("503 service unavailable"), KindMaintenance, true},
		{"page crashed", errors.New("page crashed during navigation"), KindTransport, true},
		{"validation", errors.New("content validation failed"), KindValidation, false},
		{"too long", errors.New("description too long for listing"), KindValidation, false},
		{"unmatched", errors.New("something inexplicable happened"), KindUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.Classify(tt.err, "etsy", 0)
			if rec.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", rec.Kind, tt.wantKind)
			}
			if rec.Recoverable != tt.recoverable {
				t.Fatalf("recoverable = %t, want %t", rec.Recoverable, tt.recoverable)
			}
			if rec.Platform != "etsy" {
				t.Fatalf("platform = %s, want etsy", rec.Platform)
			}
		})
	}
}

func TestClassify_StructuralTypesBeatPatterns(t *testing.T) {
	c := NewClassifier()

	// The message mentions a timeout, but the structural type wins
	err := &AuthenticationError{Platform: "facebook", Reason: "token refresh timeout"}
	rec := c.Classify(err, "facebook", 0)
	if rec.Kind != KindAuthentication {
		t.Fatalf("kind = %s, want %s", rec.Kind, KindAuthentication)
	}
	if rec.Recoverable {
		t.Fatal("authentication failures must not be recoverable")
	}

	rateErr := &RateLimitError{Platform: "instagram", RetryAfter: time.Minute}
	if rec := c.Classify(rateErr, "instagram", 0); rec.Kind != KindRateLimit {
		t.Fatalf("kind = %s, want %s", rec.Kind, KindRateLimit)
	}

	valErr := &ValidationError{Platform: "etsy", Field: "title", Reason: "empty"}
	if rec := c.Classify(valErr, "etsy", 0); rec.Kind != KindValidation {
		t.Fatalf("kind = %s, want %s", rec.Kind, KindValidation)
	}

	wrapped := errors.Join(errors.New("publish"), context.DeadlineExceeded)
	if rec := c.Classify(wrapped, "ebay", 0); rec.Kind != KindTimeout {
		t.Fatalf("kind = %s, want %s", rec.Kind, KindTimeout)
	}
}

func TestClassify_PolicyParameters(t *testing.T) {
	c := NewClassifier()

	network := c.Classify(errors.New("connection refused"), "etsy", 0)
	if network.Policy.MaxRetries != 3 || network.Policy.BaseDelay != 2*time.Second || network.Policy.BackoffMultiplier != 2.0 {
		t.Fatalf("network policy = %+v", network.Policy)
	}

	rateLimit := c.Classify(errors.New("too many requests"), "etsy", 0)
	if rateLimit.Policy.MaxRetries != 5 || rateLimit.Policy.BaseDelay != 10*time.Second {
		t.Fatalf("rate limit policy = %+v", rateLimit.Policy)
	}

	unknown := c.Classify(errors.New("gremlins"), "etsy", 0)
	if unknown.Policy.MaxRetries != 1 || unknown.Policy.BaseDelay != 2*time.Second {
		t.Fatalf("unknown policy = %+v", unknown.Policy)
	}
}

func TestRetryPolicy_DelayProgression(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second, BackoffMultiplier: 2.0}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for attempt, expected := range want {
		if got := p.Delay(attempt); got != expected {
			t.Fatalf("delay(%d) = %s, want %s", attempt, got, expected)
		}
	}
}

func TestClassify_RecordsAttemptAndMessage(t *testing.T) {
	c := NewClassifier()
	rec := c.Classify(errors.New("rate limit exceeded"), "pinterest", 2)
	if rec.Attempt != 2 {
		t.Fatalf("attempt = %d, want 2", rec.Attempt)
	}
	if rec.Message != "rate limit exceeded" {
		t.Fatalf("message = %q", rec.Message)
	}
	if rec.OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to be set")
	}
}
