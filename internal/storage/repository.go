package storage

import (
	"context"
	"time"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/models"
)

// Repository defines the interface for data persistence
type Repository interface {
	// Post operations
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error

	// Queue item operations
	CreateQueueItems(ctx context.Context, items []*models.QueueItem) error
	GetQueueItemByID(ctx context.Context, id uint) (*models.QueueItem, error)
	ListQueueItems(ctx context.Context, filter QueueFilter) ([]*models.QueueItem, int64, error)
	UpdateQueueItem(ctx context.Context, item *models.QueueItem) error
	DueQueueItems(ctx context.Context, now time.Time, limit int) ([]*models.QueueItem, error)
	ItemsForPost(ctx context.Context, postID uint) ([]*models.QueueItem, error)
	StaleProcessingItems(ctx context.Context, olderThan time.Time) ([]*models.QueueItem, error)
	FailedQueueItems(ctx context.Context, userID string, since time.Time) ([]*models.QueueItem, error)

	// Platform connection operations
	SaveConnection(ctx context.Context, conn *models.PlatformConnection) error
	GetConnection(ctx context.Context, userID, platform string) (*models.PlatformConnection, error)
	ListConnections(ctx context.Context, userID string) ([]*models.PlatformConnection, error)
	DeleteConnection(ctx context.Context, userID, platform string) error

	// Maintenance
	Close() error
	Migrate() error
}

// PostFilter defines filtering options for posts
type PostFilter struct {
	UserID    *string
	Status    *models.PostStatus
	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}

// QueueFilter defines filtering options for queue items
type QueueFilter struct {
	UserID   *string
	PostID   *uint
	Platform *string
	Status   *models.QueueItemStatus
	Limit    int
	Offset   int
}

// DefaultPostFilter returns a filter with sensible defaults
func DefaultPostFilter() PostFilter {
	return PostFilter{
		Limit:     50,
		OrderBy:   "created_at",
		OrderDesc: true,
	}
}

// DefaultQueueFilter returns a filter with sensible defaults
func DefaultQueueFilter() QueueFilter {
	return QueueFilter{
		Limit: 50,
	}
}
