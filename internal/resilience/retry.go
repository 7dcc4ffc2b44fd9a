package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/logger"
)

// defaultHistoryLimit bounds the retry history kept per key
const defaultHistoryLimit = 20

// Executor re-attempts recoverable failures with per-kind exponential
// backoff. Every attempt funnels through the circuit breaker for the target
// (platform, operation); an open circuit short-circuits immediately without
// consuming a retry slot or sleeping.
type Executor struct {
	classifier *Classifier
	breakers   *BreakerSet
	log        *logger.Logger

	historyLimit int
	history      map[string][]*ErrorRecord
	historyMu    sync.Mutex

	// sleep is injectable for deterministic backoff tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates a retry executor sharing the given breaker set
func NewExecutor(classifier *Classifier, breakers *BreakerSet, log *logger.Logger) *Executor {
	return &Executor{
		classifier:   classifier,
		breakers:     breakers,
		log:          log.WithComponent("retry"),
		historyLimit: defaultHistoryLimit,
		history:      make(map[string][]*ErrorRecord),
		sleep:        sleepContext,
	}
}

// WithSleep overrides the backoff sleep; tests inject a recorder to verify
// delays without waiting for them.
func (e *Executor) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Executor {
	e.sleep = fn
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs work through the circuit for (platform, operation), retrying
// recoverable failures per the classified policy. It fails with the last
// observed error once retries are exhausted or the failure is classified
// non-recoverable. The actor keys the retry history (typically a user or
// queue item identifier).
func (e *Executor) Execute(ctx context.Context, platform, operation, actor string, work func(ctx context.Context) error) error {
	breaker := e.breakers.For(platform, operation)
	key := historyKey(platform, operation, actor)

	attempt := 0
	for {
		err := breaker.Call(func() error { return work(ctx) })
		if err == nil {
			e.clearHistory(key)
			return nil
		}

		if IsCircuitOpen(err) {
			e.log.Warn().
				Str("platform", platform).
				Str("operation", operation).
				Msg("Circuit open, dispatch rejected")
			return fmt.Errorf("%s %s: %w", platform, operation, err)
		}

		record := e.classifier.Classify(err, platform, attempt)
		e.record(key, record)

		if !record.Recoverable || attempt >= record.Policy.MaxRetries {
			e.log.Error().
				Err(err).
				Str("platform", platform).
				Str("operation", operation).
				Str("kind", string(record.Kind)).
				Int("attempts", attempt+1).
				Bool("recoverable", record.Recoverable).
				Msg("Giving up")
			return err
		}

		delay := record.Policy.Delay(attempt)
		e.log.Warn().
			Err(err).
			Str("platform", platform).
			Str("operation", operation).
			Str("kind", string(record.Kind)).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("Retrying after backoff")

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
		attempt++
	}
}

// History returns a copy of the retry history for an actor on a platform
// operation; empty after the most recent success.
func (e *Executor) History(platform, operation, actor string) []*ErrorRecord {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	records := e.history[historyKey(platform, operation, actor)]
	out := make([]*ErrorRecord, len(records))
	copy(out, records)
	return out
}

func (e *Executor) record(key string, record *ErrorRecord) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	records := append(e.history[key], record)
	if len(records) > e.historyLimit {
		records = records[len(records)-e.historyLimit:]
	}
	e.history[key] = records
}

func (e *Executor) clearHistory(key string) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()
	delete(e.history, key)
}

func historyKey(platform, operation, actor string) string {
	return platform + ":" + operation + ":" + actor
}
