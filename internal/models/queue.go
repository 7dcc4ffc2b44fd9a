package models

import (
	"time"
)

// QueueItemStatus represents the current state of a queue item
type QueueItemStatus string

const (
	QueueItemPending    QueueItemStatus = "pending"
	QueueItemProcessing QueueItemStatus = "processing"
	QueueItemCompleted  QueueItemStatus = "completed"
	QueueItemFailed     QueueItemStatus = "failed"
)

// Terminal returns true once no further automatic transition can occur
func (s QueueItemStatus) Terminal() bool {
	return s == QueueItemCompleted || s == QueueItemFailed
}

// DefaultMaxRetries is the queue-level retry budget for a new item
const DefaultMaxRetries = 3

// QueueItem is one schedulable (post, platform) unit of dispatch work.
// Items are owned by their post and never outlive it.
type QueueItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PostID         uint            `gorm:"index;not null" json:"post_id"`
	Post           *Post           `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	Platform       string          `gorm:"index;not null" json:"platform"`
	IdempotencyKey string          `gorm:"uniqueIndex;not null" json:"idempotency_key"`
	Status         QueueItemStatus `gorm:"default:'pending';index" json:"status"`
	Priority       int             `gorm:"default:0;index" json:"priority"` // inherited from the post
	ScheduledAt    time.Time       `gorm:"index;not null" json:"scheduled_at"`
	StartedAt      *time.Time      `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
	RetryCount     int             `gorm:"default:0" json:"retry_count"`
	MaxRetries     int             `gorm:"default:3" json:"max_retries"`
	LastResult     JSON            `gorm:"type:json" json:"last_result"`
	ErrorMessage   string          `json:"error_message"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanRetry returns true if the item still has queue-level retry budget
func (i *QueueItem) CanRetry() bool {
	return i.RetryCount < i.MaxRetries
}

// ResultFromItem maps a settled queue item back to its per-platform result
func ResultFromItem(item *QueueItem) PostResult {
	r := PostResult{
		Platform:     item.Platform,
		Status:       ResultFailed,
		ErrorMessage: item.ErrorMessage,
	}
	if item.Status == QueueItemCompleted {
		r.Status = ResultSuccess
	}
	if item.LastResult != nil {
		if id, ok := item.LastResult["external_id"].(string); ok {
			r.ExternalID = id
		}
		if url, ok := item.LastResult["url"].(string); ok {
			r.URL = url
		}
		if code, ok := item.LastResult["error_code"].(string); ok {
			r.ErrorCode = code
		}
	}
	return r
}
