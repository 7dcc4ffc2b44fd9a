package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ChhabraSanyam/Acrylican-sub000/internal/models"
	"github.com/ChhabraSanyam/Acrylican-sub000/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" && dsn != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Post{},
		&models.QueueItem{},
		&models.PlatformConnection{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *Repository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *Repository) ListPosts(ctx context.Context, filter storage.PostFilter) ([]*models.Post, error) {
	var posts []*models.Post
	query := r.db.WithContext(ctx).Model(&models.Post{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	// Ordering
	orderCol := "created_at"
	if filter.OrderBy != "" {
		orderCol = filter.OrderBy
	}
	if filter.OrderDesc {
		query = query.Order(orderCol + " DESC")
	} else {
		query = query.Order(orderCol + " ASC")
	}

	// Pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// DeletePost removes a post and cascades to its queue items. Items never
// outlive their post.
func (r *Repository) DeletePost(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.QueueItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
}

// Queue item operations

func (r *Repository) CreateQueueItems(ctx context.Context, items []*models.QueueItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(items).Error
}

func (r *Repository) GetQueueItemByID(ctx context.Context, id uint) (*models.QueueItem, error) {
	var item models.QueueItem
	if err := r.db.WithContext(ctx).Preload("Post").First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) ListQueueItems(ctx context.Context, filter storage.QueueFilter) ([]*models.QueueItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QueueItem{})

	if filter.UserID != nil {
		query = query.Joins("JOIN posts ON posts.id = queue_items.post_id").
			Where("posts.user_id = ?", *filter.UserID)
	}
	if filter.PostID != nil {
		query = query.Where("queue_items.post_id = ?", *filter.PostID)
	}
	if filter.Platform != nil {
		query = query.Where("queue_items.platform = ?", *filter.Platform)
	}
	if filter.Status != nil {
		query = query.Where("queue_items.status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("queue_items.scheduled_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var items []*models.QueueItem
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) UpdateQueueItem(ctx context.Context, item *models.QueueItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DueQueueItems selects pending items whose scheduled time has passed,
// highest priority first, ties broken by earliest schedule. The ordering is
// deterministic: id is the final tiebreaker.
func (r *Repository) DueQueueItems(ctx context.Context, now time.Time, limit int) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	query := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.QueueItemPending, now).
		Order("priority DESC, scheduled_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) ItemsForPost(ctx context.Context, postID uint) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// StaleProcessingItems returns items stuck in processing since before the
// cutoff, the recovery signal after an ungraceful shutdown.
func (r *Repository) StaleProcessingItems(ctx context.Context, olderThan time.Time) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ? AND completed_at IS NULL",
			models.QueueItemProcessing, olderThan).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) FailedQueueItems(ctx context.Context, userID string, since time.Time) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	query := r.db.WithContext(ctx).Model(&models.QueueItem{}).
		Where("queue_items.status = ? AND queue_items.updated_at >= ?", models.QueueItemFailed, since)
	if userID != "" {
		query = query.Joins("JOIN posts ON posts.id = queue_items.post_id").
			Where("posts.user_id = ?", userID)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Platform connection operations

func (r *Repository) SaveConnection(ctx context.Context, conn *models.PlatformConnection) error {
	// Upsert - update if exists, create if not
	var existing models.PlatformConnection
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", conn.UserID, conn.Platform).
		First(&existing).Error; err == nil {
		conn.ID = existing.ID
	}
	return r.db.WithContext(ctx).Save(conn).Error
}

func (r *Repository) GetConnection(ctx context.Context, userID, platform string) (*models.PlatformConnection, error) {
	var conn models.PlatformConnection
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&conn).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *Repository) ListConnections(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	var conns []*models.PlatformConnection
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

func (r *Repository) DeleteConnection(ctx context.Context, userID, platform string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		Delete(&models.PlatformConnection{}).Error
}
