package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/models"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/publisher"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage"
	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/logger"
)

// Options configure the queue processor
type Options struct {
	// Interval between drain cycles. Default: 30 seconds.
	Interval time.Duration

	// BatchSize limits the items drained per tick. Default: 10.
	BatchSize int

	// BackoffBase is the queue-level linear backoff unit between dispatch
	// attempts: the nth retry is rescheduled backoff × n into the future.
	// Default: 5 minutes.
	BackoffBase time.Duration

	// StaleAfter is the grace period after which an item still marked
	// processing is treated as a retryable failure. Default: 15 minutes.
	StaleAfter time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 5 * time.Minute
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 15 * time.Minute
	}
	return o
}

// TickStats summarizes one drain cycle
type TickStats struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Retried    int `json:"retried"`
}

// Processor drains due queue items on a timer, driving each through the
// platform dispatcher and keeping item and parent post state current.
type Processor struct {
	repo       storage.Repository
	dispatcher *publisher.Dispatcher
	opts       Options
	log        *logger.Logger
	now        func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewProcessor creates a queue processor
func NewProcessor(repo storage.Repository, dispatcher *publisher.Dispatcher, opts Options, log *logger.Logger) *Processor {
	return &Processor{
		repo:       repo,
		dispatcher: dispatcher,
		opts:       opts.withDefaults(),
		log:        log.WithComponent("queue"),
		now:        time.Now,
	}
}

// Start begins draining the queue every interval until Stop is called
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return fmt.Errorf("processor already started")
	}

	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", p.opts.Interval), func() {
		p.drain(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule drain cycle: %w", err)
	}

	c.Start()
	p.cron = c
	p.log.Info().Dur("interval", p.opts.Interval).Msg("Queue processor started")
	return nil
}

// Stop halts the drain timer. In-flight items finish their current state
// transition; anything caught mid-processing is recovered by the stale sweep.
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
	p.cron = nil
	p.log.Info().Msg("Queue processor stopped")
}

// drain runs one timer cycle: sweep stale processing items, then work a batch
// of due items.
func (p *Processor) drain(ctx context.Context) {
	recovered, err := p.ReconcileStale(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("Stale sweep failed")
	} else if recovered > 0 {
		p.log.Warn().Int("items", recovered).Msg("Stale processing items reconciled")
	}

	stats, err := p.Tick(ctx, p.opts.BatchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("Drain cycle failed")
		return
	}
	if stats.Processed > 0 {
		p.log.Info().
			Int("processed", stats.Processed).
			Int("successful", stats.Successful).
			Int("failed", stats.Failed).
			Int("retried", stats.Retried).
			Msg("Drain cycle completed")
	}
}

// Tick runs a single drain cycle: select due pending items in priority order,
// dispatch each, and settle parent posts. A single item's failure never
// aborts the batch.
func (p *Processor) Tick(ctx context.Context, batchSize int) (TickStats, error) {
	if batchSize <= 0 {
		batchSize = p.opts.BatchSize
	}

	var stats TickStats
	items, err := p.repo.DueQueueItems(ctx, p.now(), batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to select due items: %w", err)
	}

	for _, item := range items {
		stats.Processed++
		switch p.processItem(ctx, item) {
		case models.QueueItemCompleted:
			stats.Successful++
		case models.QueueItemFailed:
			stats.Failed++
		case models.QueueItemPending:
			stats.Retried++
		}
	}
	return stats, nil
}

// processItem drives one item through a dispatch attempt and returns the
// resulting status. Panics and unexpected errors are converted into a failed
// item, never propagated.
func (p *Processor) processItem(ctx context.Context, item *models.QueueItem) (outcome models.QueueItemStatus) {
	log := p.log.WithItemID(item.ID).WithPlatform(item.Platform)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Item processing panicked")
			p.failItem(ctx, item, fmt.Sprintf("internal error: %v", r))
			outcome = models.QueueItemFailed
		}
	}()

	post, err := p.repo.GetPostByID(ctx, item.PostID)
	if err != nil {
		p.failItem(ctx, item, fmt.Sprintf("post %d not found: %v", item.PostID, err))
		return models.QueueItemFailed
	}

	started := p.now()
	item.Status = models.QueueItemProcessing
	item.StartedAt = &started
	if err := p.repo.UpdateQueueItem(ctx, item); err != nil {
		// The stored row is still pending, so the next tick picks it up again.
		log.Error().Err(err).Msg("Failed to mark item processing")
		return models.QueueItemPending
	}

	if post.Status == models.PostStatusScheduled {
		post.Status = models.PostStatusPublishing
		if err := p.repo.UpdatePost(ctx, post); err != nil {
			log.Warn().Err(err).Msg("Failed to mark post publishing")
		}
	}

	result := p.dispatcher.Dispatch(ctx, post.UserID, item.Platform, publisher.ContentFor(post))

	if result.Status == models.ResultSuccess {
		completed := p.now()
		item.Status = models.QueueItemCompleted
		item.CompletedAt = &completed
		item.ErrorMessage = ""
		item.LastResult = result.Payload()
		if err := p.repo.UpdateQueueItem(ctx, item); err != nil {
			log.Error().Err(err).Msg("Failed to mark item completed")
		}
		p.settlePost(ctx, post)
		return models.QueueItemCompleted
	}

	// Dispatch failed: requeue with queue-level linear backoff while budget
	// remains, otherwise fail terminally.
	if item.CanRetry() {
		item.RetryCount++
		item.Status = models.QueueItemPending
		item.ScheduledAt = p.now().Add(p.opts.BackoffBase * time.Duration(item.RetryCount))
		item.ErrorMessage = result.ErrorMessage
		item.LastResult = result.Payload()
		if err := p.repo.UpdateQueueItem(ctx, item); err != nil {
			log.Error().Err(err).Msg("Failed to requeue item")
		}
		log.Warn().
			Int("retry_count", item.RetryCount).
			Time("next_attempt", item.ScheduledAt).
			Str("error", result.ErrorMessage).
			Msg("Item requeued")
		return models.QueueItemPending
	}

	item.LastResult = result.Payload()
	p.failItem(ctx, item, result.ErrorMessage)
	p.settlePost(ctx, post)
	return models.QueueItemFailed
}

func (p *Processor) failItem(ctx context.Context, item *models.QueueItem, message string) {
	completed := p.now()
	item.Status = models.QueueItemFailed
	item.CompletedAt = &completed
	item.ErrorMessage = message
	if err := p.repo.UpdateQueueItem(ctx, item); err != nil {
		p.log.Error().Err(err).Uint("item_id", item.ID).Msg("Failed to mark item failed")
	}
}

// settlePost computes the parent post's terminal status once no queue items
// remain pending or processing.
func (p *Processor) settlePost(ctx context.Context, post *models.Post) {
	items, err := p.repo.ItemsForPost(ctx, post.ID)
	if err != nil {
		p.log.Error().Err(err).Uint("post_id", post.ID).Msg("Failed to load items for settlement")
		return
	}

	results := make([]models.PostResult, 0, len(items))
	for _, item := range items {
		if !item.Status.Terminal() {
			return
		}
		results = append(results, models.ResultFromItem(item))
	}

	post.Results = results
	post.Status = models.AggregateStatus(results)
	if post.Status == models.PostStatusPublished || post.Status == models.PostStatusPartial {
		now := p.now()
		post.PublishedAt = &now
	}
	if err := p.repo.UpdatePost(ctx, post); err != nil {
		p.log.Error().Err(err).Uint("post_id", post.ID).Msg("Failed to settle post")
		return
	}

	p.log.Info().
		Uint("post_id", post.ID).
		Str("status", string(post.Status)).
		Int("items", len(items)).
		Msg("Post settled")
}

// ReconcileStale requeues items stuck in processing past the grace period,
// the recovery path after an ungraceful shutdown. Items out of retry budget
// fail terminally instead. Returns the number of items touched.
func (p *Processor) ReconcileStale(ctx context.Context) (int, error) {
	cutoff := p.now().Add(-p.opts.StaleAfter)
	items, err := p.repo.StaleProcessingItems(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to select stale items: %w", err)
	}

	for _, item := range items {
		log := p.log.WithItemID(item.ID).WithPlatform(item.Platform)
		if item.CanRetry() {
			item.RetryCount++
			item.Status = models.QueueItemPending
			item.ScheduledAt = p.now()
			item.ErrorMessage = "recovered from interrupted processing"
			if err := p.repo.UpdateQueueItem(ctx, item); err != nil {
				log.Error().Err(err).Msg("Failed to recover stale item")
				continue
			}
			log.Warn().Msg("Stale processing item requeued")
		} else {
			p.failItem(ctx, item, "interrupted processing, retries exhausted")
			if post, err := p.repo.GetPostByID(ctx, item.PostID); err == nil {
				p.settlePost(ctx, post)
			}
			log.Warn().Msg("Stale processing item failed")
		}
	}
	return len(items), nil
}
