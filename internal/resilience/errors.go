package resilience

import (
	"fmt"
	"time"
)

// Structural failure types. Platform adapters raise these where they can tell
// what went wrong; the classifier prefers them over message pattern matching.

// AuthenticationError indicates the platform rejected our credentials.
// Requires operator or credential intervention, never retried automatically.
type AuthenticationError struct {
	Platform string
	Reason   string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Platform, e.Reason)
}

// RateLimitError indicates the platform throttled the request
type RateLimitError struct {
	Platform   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Platform, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Platform)
}

// ValidationError indicates the content violates a platform constraint
type ValidationError struct {
	Platform string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: invalid %s: %s", e.Platform, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: validation failed: %s", e.Platform, e.Reason)
}
