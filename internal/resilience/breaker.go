package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/logger"
)

// Mode represents the state of a circuit
type Mode string

const (
	ModeClosed   Mode = "closed"
	ModeOpen     Mode = "open"
	ModeHalfOpen Mode = "half-open"
)

// CircuitState is a point-in-time snapshot of one circuit
type CircuitState struct {
	Platform    string
	Operation   string
	Mode        Mode
	Failures    int // consecutive failures observed
	LastFailure time.Time
	Threshold   int
	Cooldown    time.Duration
}

// BreakerConfig configures every circuit in a set
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5.
	FailureThreshold int

	// Cooldown is how long the circuit stays open before a half-open
	// probe is allowed. Default: 300 seconds.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the default circuit parameters
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         300 * time.Second,
	}
}

// IsCircuitOpen reports whether an error is a circuit-open rejection
func IsCircuitOpen(err error) bool {
	return errors.Is(err, circuitbreaker.ErrOpen)
}

// Breaker guards one (platform, operation) pair. Built on failsafe-go's
// circuit breaker; the wrapper tracks consecutive failures and the last
// failure time for state reporting.
type Breaker struct {
	platform  string
	operation string
	cfg       BreakerConfig
	cb        circuitbreaker.CircuitBreaker[any]
	now       func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
}

func newBreaker(platform, operation string, cfg BreakerConfig, log *logger.Logger) *Breaker {
	b := &Breaker{
		platform:  platform,
		operation: operation,
		cfg:       cfg,
		now:       time.Now,
	}

	builder := circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(uint(cfg.FailureThreshold)).
		WithDelay(cfg.Cooldown).
		WithSuccessThreshold(1)

	if log != nil {
		builder = builder.OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			log.Warn().
				Str("platform", platform).
				Str("operation", operation).
				Str("from_state", string(convertMode(event.OldState))).
				Str("to_state", string(convertMode(event.NewState))).
				Msg("Circuit state change")
		})
	}

	b.cb = builder.Build()
	return b
}

func convertMode(state circuitbreaker.State) Mode {
	switch state {
	case circuitbreaker.OpenState:
		return ModeOpen
	case circuitbreaker.HalfOpenState:
		return ModeHalfOpen
	default:
		return ModeClosed
	}
}

// Call executes fn through the circuit. When the circuit is open the call
// fails immediately with circuitbreaker.ErrOpen and fn is never invoked.
func (b *Breaker) Call(fn func() error) error {
	_, err := failsafe.With(b.cb).Get(func() (any, error) {
		return nil, fn()
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case err == nil:
		b.failures = 0
	case IsCircuitOpen(err):
		// Rejected without attempting work; not a new failure
	default:
		b.failures++
		b.lastFailure = b.now()
	}
	return err
}

// State returns a snapshot of the circuit
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CircuitState{
		Platform:    b.platform,
		Operation:   b.operation,
		Mode:        convertMode(b.cb.State()),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
		Threshold:   b.cfg.FailureThreshold,
		Cooldown:    b.cfg.Cooldown,
	}
}

// BreakerSet holds one circuit per (platform, operation) pair. It is the one
// piece of shared mutable state touched by concurrent dispatches, so it is an
// explicit injected object rather than a process-wide registry.
type BreakerSet struct {
	cfg BreakerConfig
	log *logger.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewBreakerSet creates an empty set; circuits are created lazily per key
func NewBreakerSet(cfg BreakerConfig, log *logger.Logger) *BreakerSet {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 300 * time.Second
	}
	return &BreakerSet{
		cfg:      cfg,
		log:      log,
		breakers: make(map[string]*Breaker),
	}
}

// For returns the circuit guarding the given platform and operation,
// creating it on first use.
func (s *BreakerSet) For(platform, operation string) *Breaker {
	key := platform + ":" + operation
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[key]
	if !ok {
		b = newBreaker(platform, operation, s.cfg, s.log)
		s.breakers[key] = b
	}
	return b
}

// State returns the snapshot for one circuit
func (s *BreakerSet) State(platform, operation string) CircuitState {
	return s.For(platform, operation).State()
}

// States returns snapshots of every circuit created so far
func (s *BreakerSet) States() []CircuitState {
	s.mu.Lock()
	breakers := make([]*Breaker, 0, len(s.breakers))
	for _, b := range s.breakers {
		breakers = append(breakers, b)
	}
	s.mu.Unlock()

	states := make([]CircuitState, 0, len(breakers))
	for _, b := range breakers {
		states = append(states, b.State())
	}
	return states
}
