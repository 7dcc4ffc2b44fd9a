package resilience

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

// ErrorKind is a named failure category with a fixed retry policy
type ErrorKind string

const (
	KindNetwork         ErrorKind = "network"
	KindTimeout         ErrorKind = "timeout"
	KindAuthentication  ErrorKind = "authentication"
	KindElementNotFound ErrorKind = "element_not_found"
	KindRateLimit       ErrorKind = "rate_limit"
	KindAntiBot         ErrorKind = "anti_bot"
	KindSessionExpired  ErrorKind = "session_expired"
	KindMaintenance     ErrorKind = "platform_maintenance"
	KindTransport       ErrorKind = "transport"
	KindValidation      ErrorKind = "validation"
	KindUnknown         ErrorKind = "unknown"
)

// Severity indicates how urgently a failure needs attention
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RetryPolicy holds the per-kind retry parameters
type RetryPolicy struct {
	MaxRetries        int
	BaseDelay         time.Duration
	BackoffMultiplier float64
}

// Delay returns the backoff before the retry following the given attempt
// (zero-based): base × multiplier^attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt)))
}

// ErrorRecord is the classified view of a single failure. It is ephemeral:
// it drives retry decisions and logging but is never persisted as an entity.
type ErrorRecord struct {
	Kind        ErrorKind
	Severity    Severity
	Recoverable bool
	Policy      RetryPolicy
	Platform    string
	Message     string
	Attempt     int
	OccurredAt  time.Time
}

// classRule defines one classification category: how failures are matched to
// it and what policy applies. Rules are ordered; first match wins.
type classRule struct {
	Kind        ErrorKind
	Severity    Severity
	Recoverable bool
	Policy      RetryPolicy
	Patterns    []string
}

// classificationTable is the single source of truth for retry behavior.
// Substring patterns are matched in order against the lowercased message.
var classificationTable = []classRule{
	{
		Kind:        KindRateLimit,
		Severity:    SeverityMedium,
		Recoverable: true,
		Policy:      RetryPolicy{MaxRetries: 5, BaseDelay: 10 * time.Second, BackoffMultiplier: 2.0},
		Patterns:    []string{"rate limit", "too many requests", "429", "throttl"},
	},
	{
		Kind:        KindAntiBot,
		Severity:    SeverityCritical,
		Recoverable: false,
		Policy:      RetryPolicy{MaxRetries: 0, BaseDelay: 0, BackoffMultiplier: 1.0},
		Patterns:    []string{"captcha", "verification required", "challenge", "suspicious activity", "bot detected", "unusual traffic"},
	},
	{
		Kind:        KindSessionExpired,
		Severity:    SeverityHigh,
		Recoverable: true,
		Policy:      RetryPolicy{MaxRetries: 1, BaseDelay: 5 * time.Second, BackoffMultiplier: 2.0},
		Patterns:    []string{"session expired", "session invalid", "logged out", "please log in again"},
	},
	{
		Kind:        KindAuthentication,
		Severity:    SeverityCritical,
		Recoverable: false,
		Policy:      RetryPolicy{MaxRetries: 0, BaseDelay: 0, BackoffMultiplier: 1.0},
		Patterns:    []string{"unauthorized", "authentication", "invalid credentials", "login required", "access denied", "401", "403"},
	},
	{
		Kind:        KindTimeout,
		Severity:    SeverityMedium,
		Recoverable: true,
		Policy:      RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second, BackoffMultiplier: 2.0},
		Patterns:    []string{"timeout", "timed out", "deadline exceeded"},
	},
	{
		Kind:        KindMaintenance,
		Severity:    SeverityMedium,
		Recoverable: true,
		Policy:      RetryPolicy{MaxRetries: 3, BaseDelay: 30 * time.Second, BackoffMultiplier: 2.0},
		Patterns:    []string{"maintenance", "service unavailable", "503", "temporarily unavailable"},
	},
	{
		Kind:        KindNetwork,
		Severity:    SeverityMedium,
		Recoverable: true,
		Policy:      RetryPolicy{MaxRetries: 3, BaseDelay: 2 * time.Second, BackoffMultiplier: 2.0},
		Patterns:    []string{"connection refused", "connection reset", "no such host", "network is unreachable", "broken pipe", "dns"},
	},
	{
		Kind:        KindElementNotFound,
		Severity:    SeverityMedium,
		Recoverable: true,
		Policy:      RetryPolicy{MaxRetries: 2, BaseDelay: 1 * time.Second, BackoffMultiplier: 2.0},
		Patterns:    []string{"element not found", "no such element", "selector", "node not found"},
	},
	{
		Kind:        KindTransport,
		Severity:    SeverityMedium,
		Recoverable: true,
		Policy:      RetryPolicy{MaxRetries: 2, BaseDelay: 3 * time.Second, BackoffMultiplier: 2.0},
		Patterns:    []string{"browser", "page crashed", "target closed", "websocket", "protocol error"},
	},
	{
		Kind:        KindValidation,
		Severity:    SeverityHigh,
		Recoverable: false,
		Policy:      RetryPolicy{MaxRetries: 0, BaseDelay: 0, BackoffMultiplier: 1.0},
		Patterns:    []string{"validation", "invalid content", "required field", "too long", "unsupported media", "exceeds limit"},
	},
}

// unknownRule is the fallback for failures no rule matches
var unknownRule = classRule{
	Kind:        KindUnknown,
	Severity:    SeverityMedium,
	Recoverable: true,
	Policy:      RetryPolicy{MaxRetries: 1, BaseDelay: 2 * time.Second, BackoffMultiplier: 2.0},
}

// Classifier maps raw failures to classified error records
type Classifier struct {
	rules []classRule
	now   func() time.Time
}

// NewClassifier creates a classifier with the built-in category table
func NewClassifier() *Classifier {
	return &Classifier{rules: classificationTable, now: time.Now}
}

// Classify inspects a failure and returns its classified record. Structural
// error types win over message patterns; unmatched failures fall back to
// the unknown category.
func (c *Classifier) Classify(err error, platform string, attempt int) *ErrorRecord {
	rule := c.match(err)
	return &ErrorRecord{
		Kind:        rule.Kind,
		Severity:    rule.Severity,
		Recoverable: rule.Recoverable,
		Policy:      rule.Policy,
		Platform:    platform,
		Message:     err.Error(),
		Attempt:     attempt,
		OccurredAt:  c.now(),
	}
}

func (c *Classifier) match(err error) classRule {
	// Structural types first
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return c.ruleFor(KindAuthentication)
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return c.ruleFor(KindRateLimit)
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return c.ruleFor(KindValidation)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return c.ruleFor(KindTimeout)
	}

	// Ordered pattern table
	msg := strings.ToLower(err.Error())
	for _, rule := range c.rules {
		for _, p := range rule.Patterns {
			if strings.Contains(msg, p) {
				return rule
			}
		}
	}
	return unknownRule
}

func (c *Classifier) ruleFor(kind ErrorKind) classRule {
	for _, rule := range c.rules {
		if rule.Kind == kind {
			return rule
		}
	}
	return unknownRule
}

// PolicyFor returns the retry policy for a kind, falling back to the
// unknown policy.
func (c *Classifier) PolicyFor(kind ErrorKind) RetryPolicy {
	return c.ruleFor(kind).Policy
}
