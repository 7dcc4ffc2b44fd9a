package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/models"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage"
)

var testTime = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createPost(t *testing.T, repo *Repository, userID string, priority int) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:    userID,
		Title:     "Mug",
		Platforms: []string{"etsy"},
		Priority:  priority,
		Status:    models.PostStatusScheduled,
	}
	require.NoError(t, repo.CreatePost(context.Background(), post))
	return post
}

func createItem(t *testing.T, repo *Repository, post *models.Post, status models.QueueItemStatus, due time.Time) *models.QueueItem {
	t.Helper()
	item := &models.QueueItem{
		PostID:         post.ID,
		Platform:       "etsy",
		IdempotencyKey: uuid.NewString(),
		Status:         status,
		Priority:       post.Priority,
		ScheduledAt:    due,
		MaxRetries:     models.DefaultMaxRetries,
	}
	require.NoError(t, repo.CreateQueueItems(context.Background(), []*models.QueueItem{item}))
	return item
}

func TestDueQueueItems_PriorityThenSchedule(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	low := createPost(t, repo, "user-1", 3)
	high := createPost(t, repo, "user-1", 5)

	lowEarly := createItem(t, repo, low, models.QueueItemPending, testTime.Add(-2*time.Hour))
	highLate := createItem(t, repo, high, models.QueueItemPending, testTime.Add(-time.Minute))
	highEarly := createItem(t, repo, high, models.QueueItemPending, testTime.Add(-time.Hour))
	// Neither due-in-the-future nor completed items are selected
	createItem(t, repo, low, models.QueueItemPending, testTime.Add(time.Hour))
	createItem(t, repo, high, models.QueueItemCompleted, testTime.Add(-time.Hour))

	items, err := repo.DueQueueItems(ctx, testTime, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, highEarly.ID, items[0].ID, "highest priority, earliest schedule first")
	require.Equal(t, highLate.ID, items[1].ID)
	require.Equal(t, lowEarly.ID, items[2].ID)

	limited, err := repo.DueQueueItems(ctx, testTime, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, highEarly.ID, limited[0].ID)
}

func TestStaleProcessingItems(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	post := createPost(t, repo, "user-1", 0)

	stale := createItem(t, repo, post, models.QueueItemProcessing, testTime)
	staleStart := testTime.Add(-30 * time.Minute)
	stale.StartedAt = &staleStart
	require.NoError(t, repo.UpdateQueueItem(ctx, stale))

	fresh := createItem(t, repo, post, models.QueueItemProcessing, testTime)
	freshStart := testTime.Add(-time.Minute)
	fresh.StartedAt = &freshStart
	require.NoError(t, repo.UpdateQueueItem(ctx, fresh))

	// Processing but never started: not a reconciliation target
	createItem(t, repo, post, models.QueueItemProcessing, testTime)

	items, err := repo.StaleProcessingItems(ctx, testTime.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, stale.ID, items[0].ID)
}

func TestFailedQueueItems_ScopedToUser(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mine := createPost(t, repo, "user-1", 0)
	theirs := createPost(t, repo, "user-2", 0)
	myFailed := createItem(t, repo, mine, models.QueueItemFailed, testTime)
	createItem(t, repo, theirs, models.QueueItemFailed, testTime)
	createItem(t, repo, mine, models.QueueItemPending, testTime)

	items, err := repo.FailedQueueItems(ctx, "user-1", testTime.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, myFailed.ID, items[0].ID)

	all, err := repo.FailedQueueItems(ctx, "", testTime.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestListQueueItems_FiltersAndCounts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	post := createPost(t, repo, "user-1", 0)
	other := createPost(t, repo, "user-2", 0)
	createItem(t, repo, post, models.QueueItemPending, testTime)
	createItem(t, repo, post, models.QueueItemFailed, testTime)
	createItem(t, repo, other, models.QueueItemPending, testTime)

	userID := "user-1"
	items, total, err := repo.ListQueueItems(ctx, storage.QueueFilter{UserID: &userID, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)

	status := models.QueueItemFailed
	items, total, err = repo.ListQueueItems(ctx, storage.QueueFilter{UserID: &userID, Status: &status, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	require.Equal(t, models.QueueItemFailed, items[0].Status)
}

func TestDeletePost_CascadesToItems(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	post := createPost(t, repo, "user-1", 0)
	item := createItem(t, repo, post, models.QueueItemPending, testTime)

	require.NoError(t, repo.DeletePost(ctx, post.ID))

	_, err := repo.GetPostByID(ctx, post.ID)
	require.Error(t, err)
	_, err = repo.GetQueueItemByID(ctx, item.ID)
	require.Error(t, err)
}

func TestSaveConnection_Upserts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	conn := &models.PlatformConnection{
		UserID:      "user-1",
		Platform:    "etsy",
		AccessToken: "first",
		Active:      true,
	}
	require.NoError(t, repo.SaveConnection(ctx, conn))

	updated := &models.PlatformConnection{
		UserID:      "user-1",
		Platform:    "etsy",
		AccessToken: "second",
		Active:      true,
	}
	require.NoError(t, repo.SaveConnection(ctx, updated))
	require.Equal(t, conn.ID, updated.ID)

	saved, err := repo.GetConnection(ctx, "user-1", "etsy")
	require.NoError(t, err)
	require.Equal(t, "second", saved.AccessToken)

	conns, err := repo.ListConnections(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, conns, 1)
}

func TestPostRoundTrip_JSONColumns(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	post := &models.Post{
		UserID:    "user-1",
		Title:     "Mug",
		MediaRefs: []string{"media/1.jpg", "media/2.jpg"},
		Tags:      []string{"ceramics", "handmade"},
		Platforms: []string{"etsy", "shopify"},
		Results: []models.PostResult{
			{Platform: "etsy", Status: models.ResultSuccess, ExternalID: "ext-1"},
		},
	}
	require.NoError(t, repo.CreatePost(ctx, post))

	saved, err := repo.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"media/1.jpg", "media/2.jpg"}, []string(saved.MediaRefs))
	require.Equal(t, []string{"ceramics", "handmade"}, []string(saved.Tags))
	require.Len(t, saved.Results, 1)
	require.Equal(t, "ext-1", saved.Results[0].ExternalID)
}
