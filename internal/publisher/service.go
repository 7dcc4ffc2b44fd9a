package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/models"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/platform"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage"
	"github.com/ChhabraSanyam/Acrylican-sub000/pkg/logger"
)

// Service is the entry point for post lifecycle operations: creating posts,
// immediate multi-platform publishing, scheduling queue items and operator
// retry/inspection of the queue.
type Service struct {
	repo       storage.Repository
	dispatcher *Dispatcher
	maxRetries int
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a publishing service
func NewService(repo storage.Repository, dispatcher *Dispatcher, maxRetries int, log *logger.Logger) *Service {
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		maxRetries: maxRetries,
		log:        log.WithComponent("publisher"),
		now:        time.Now,
	}
}

// CreatePostInput carries the user-supplied fields for a new post
type CreatePostInput struct {
	Title       string
	Description string
	MediaRefs   []string
	Tags        []string
	Platforms   []string
	Priority    int
	ScheduledAt *time.Time
}

// CreatePost creates a post in draft state. When a scheduled time is given,
// queue items are created immediately and the post moves to scheduled.
func (s *Service) CreatePost(ctx context.Context, userID string, input CreatePostInput) (*models.Post, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if len(input.Platforms) == 0 {
		return nil, fmt.Errorf("at least one target platform is required")
	}

	post := &models.Post{
		UserID:       userID,
		Title:        input.Title,
		Description:  input.Description,
		MediaRefs:    input.MediaRefs,
		Tags:         input.Tags,
		Platforms:    input.Platforms,
		Priority:     input.Priority,
		Status:       models.PostStatusDraft,
		ScheduledFor: input.ScheduledAt,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}

	if input.ScheduledAt != nil {
		if _, err := s.Schedule(ctx, post.ID, nil, *input.ScheduledAt); err != nil {
			return nil, err
		}
		post.Status = models.PostStatusScheduled
	}

	s.log.Info().
		Uint("post_id", post.ID).
		Str("user_id", userID).
		Strs("platforms", input.Platforms).
		Bool("scheduled", input.ScheduledAt != nil).
		Msg("Post created")

	return post, nil
}

// PublishNow publishes a post to its target platforms immediately, one
// concurrent dispatch per platform. Each platform's failure is isolated; the
// aggregate waits for all dispatches to settle and the post status becomes
// published, partial or failed.
func (s *Service) PublishNow(ctx context.Context, postID uint, platforms []string) ([]models.PostResult, error) {
	post, err := s.repo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("post not found: %w", err)
	}
	if len(platforms) == 0 {
		platforms = post.Platforms
	}
	if len(platforms) == 0 {
		return nil, fmt.Errorf("post %d has no target platforms", postID)
	}

	// Pending queue items for the targeted platforms are superseded by this
	// publish and settled from its results, so the post never reaches a
	// terminal status while derived items are still open. An item already
	// being processed cannot be taken over safely.
	items, err := s.repo.ItemsForPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue items: %w", err)
	}
	targeted := make(map[string]bool, len(platforms))
	for _, name := range platforms {
		targeted[name] = true
	}
	superseded := make(map[string]*models.QueueItem)
	for _, item := range items {
		if item.Status.Terminal() {
			continue
		}
		if item.Status == models.QueueItemProcessing {
			return nil, fmt.Errorf("post %d has an in-flight queue item for %s", postID, item.Platform)
		}
		if targeted[item.Platform] {
			superseded[item.Platform] = item
		}
	}

	post.Status = models.PostStatusPublishing
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.log.Info().
		Uint("post_id", postID).
		Strs("platforms", platforms).
		Msg("Publishing post")

	content := ContentFor(post)
	results := make([]models.PostResult, len(platforms))

	var wg sync.WaitGroup
	for i, name := range platforms {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = s.dispatcher.Dispatch(ctx, post.UserID, name, content)
		}(i, name)
	}
	wg.Wait()

	for i := range results {
		item, ok := superseded[results[i].Platform]
		if !ok {
			continue
		}
		completed := s.now()
		item.Status = models.QueueItemCompleted
		if results[i].Status == models.ResultFailed {
			item.Status = models.QueueItemFailed
		}
		item.CompletedAt = &completed
		item.ErrorMessage = results[i].ErrorMessage
		item.LastResult = results[i].Payload()
		if err := s.repo.UpdateQueueItem(ctx, item); err != nil {
			s.log.Warn().Err(err).Uint("item_id", item.ID).Msg("Failed to settle superseded item")
		}
	}

	s.settleFromResults(ctx, post, results)
	return results, nil
}

// Schedule creates one queue item per target platform, due at the given
// time, and moves the post to scheduled. Platforms default to the post's
// target set.
func (s *Service) Schedule(ctx context.Context, postID uint, platforms []string, scheduledAt time.Time) ([]uint, error) {
	post, err := s.repo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("post not found: %w", err)
	}
	if post.Status == models.PostStatusPublishing {
		return nil, fmt.Errorf("post %d is currently publishing", postID)
	}
	if len(platforms) == 0 {
		platforms = post.Platforms
	}

	// One open item per (post, platform): scheduling twice would dispatch
	// the same content twice.
	existing, err := s.repo.ItemsForPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue items: %w", err)
	}
	active := make(map[string]bool)
	for _, item := range existing {
		if !item.Status.Terminal() {
			active[item.Platform] = true
		}
	}
	for _, name := range platforms {
		if active[name] {
			return nil, fmt.Errorf("post %d already has an active queue item for %s", postID, name)
		}
	}

	items := make([]*models.QueueItem, 0, len(platforms))
	for _, name := range platforms {
		items = append(items, &models.QueueItem{
			PostID:         post.ID,
			Platform:       name,
			IdempotencyKey: uuid.NewString(),
			Status:         models.QueueItemPending,
			Priority:       post.Priority,
			ScheduledAt:    scheduledAt,
			MaxRetries:     s.maxRetries,
		})
	}
	if err := s.repo.CreateQueueItems(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to create queue items: %w", err)
	}

	post.Status = models.PostStatusScheduled
	post.ScheduledFor = &scheduledAt
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	s.log.Info().
		Uint("post_id", postID).
		Int("items", len(ids)).
		Time("scheduled_at", scheduledAt).
		Msg("Post scheduled")

	return ids, nil
}

// RetryFailed requeues failed queue items younger than maxAge that still
// have retry budget. Returns the number requeued.
func (s *Service) RetryFailed(ctx context.Context, userID string, maxAge time.Duration) (int, error) {
	since := s.now().Add(-maxAge)
	items, err := s.repo.FailedQueueItems(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list failed items: %w", err)
	}

	requeued := 0
	for _, item := range items {
		if !item.CanRetry() {
			continue
		}
		item.Status = models.QueueItemPending
		item.ScheduledAt = s.now()
		item.StartedAt = nil
		item.CompletedAt = nil
		if err := s.repo.UpdateQueueItem(ctx, item); err != nil {
			s.log.Warn().Err(err).Uint("item_id", item.ID).Msg("Failed to requeue item")
			continue
		}
		requeued++
	}

	s.log.Info().
		Str("user_id", userID).
		Int("requeued", requeued).
		Msg("Failed items requeued")

	return requeued, nil
}

// RetryItem is the operator-triggered reset for a single failed item: it
// re-enters pending, due now. Only failed items may be reset.
func (s *Service) RetryItem(ctx context.Context, itemID uint) error {
	item, err := s.repo.GetQueueItemByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("queue item not found: %w", err)
	}
	if item.Status != models.QueueItemFailed {
		return fmt.Errorf("can only retry failed items, item %d is %s", itemID, item.Status)
	}
	item.Status = models.QueueItemPending
	item.ScheduledAt = s.now()
	item.StartedAt = nil
	item.CompletedAt = nil
	return s.repo.UpdateQueueItem(ctx, item)
}

// QueueStatus lists queue items matching the filter along with the total count
func (s *Service) QueueStatus(ctx context.Context, filter storage.QueueFilter) ([]*models.QueueItem, int64, error) {
	return s.repo.ListQueueItems(ctx, filter)
}

// DeletePost removes a post and its queue items. Deletion is forbidden while
// the post is publishing.
func (s *Service) DeletePost(ctx context.Context, postID uint) error {
	post, err := s.repo.GetPostByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("post not found: %w", err)
	}
	if post.Status == models.PostStatusPublishing {
		return fmt.Errorf("cannot delete post %d while publishing", postID)
	}
	return s.repo.DeletePost(ctx, postID)
}

// settleFromResults records the per-platform results and the aggregate
// terminal status after an immediate publish. While the post still has
// non-terminal queue items (platforms outside this publish), the interim
// results are recorded but the post stays publishing; once every item is
// terminal the aggregate is computed over all of them.
func (s *Service) settleFromResults(ctx context.Context, post *models.Post, results []models.PostResult) {
	items, err := s.repo.ItemsForPost(ctx, post.ID)
	if err != nil {
		s.log.Error().Err(err).Uint("post_id", post.ID).Msg("Failed to load items for settlement")
		return
	}
	if len(items) > 0 {
		for _, item := range items {
			if !item.Status.Terminal() {
				post.Results = results
				if err := s.repo.UpdatePost(ctx, post); err != nil {
					s.log.Error().Err(err).Uint("post_id", post.ID).Msg("Failed to record interim results")
				}
				return
			}
		}
		results = make([]models.PostResult, 0, len(items))
		for _, item := range items {
			results = append(results, models.ResultFromItem(item))
		}
	}

	post.Results = results
	post.Status = models.AggregateStatus(results)
	post.ErrorMessage = ""
	for _, r := range results {
		if r.Status == models.ResultFailed && post.ErrorMessage == "" {
			post.ErrorMessage = r.ErrorMessage
		}
	}
	if post.Status == models.PostStatusPublished || post.Status == models.PostStatusPartial {
		now := s.now()
		post.PublishedAt = &now
	}
	if err := s.repo.UpdatePost(ctx, post); err != nil {
		s.log.Error().Err(err).Uint("post_id", post.ID).Msg("Failed to settle post")
		return
	}

	s.log.Info().
		Uint("post_id", post.ID).
		Str("status", string(post.Status)).
		Msg("Post settled")
}

// ContentFor maps a post to the normalized content handed to adapters
func ContentFor(post *models.Post) platform.Content {
	return platform.Content{
		Title:     post.Title,
		Body:      post.Description,
		MediaRefs: post.MediaRefs,
		Tags:      post.Tags,
	}
}
