package models

import (
	"time"
)

// PostStatus represents the current state of a post
type PostStatus string

const (
	PostStatusDraft      PostStatus = "draft"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusPartial    PostStatus = "partial"
	PostStatusFailed     PostStatus = "failed"
)

// Terminal returns true once no further automatic transition can occur
func (s PostStatus) Terminal() bool {
	return s == PostStatusPublished || s == PostStatusPartial || s == PostStatusFailed
}

// Post represents user-authored content targeted at one or more platforms
type Post struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       string      `gorm:"index;not null" json:"user_id"`
	Title        string      `gorm:"not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	MediaRefs    StringSlice `gorm:"type:json" json:"media_refs"` // opaque media references
	Tags         StringSlice `gorm:"type:json" json:"tags"`
	Platforms    StringSlice `gorm:"type:json;not null" json:"platforms"`
	Priority     int         `gorm:"default:0;index" json:"priority"` // higher publishes sooner
	Status       PostStatus  `gorm:"default:'draft';index" json:"status"`
	ScheduledFor *time.Time  `gorm:"index" json:"scheduled_for"`
	Results      ResultList  `gorm:"type:json" json:"results"` // per-platform outcome of the last publish
	ErrorMessage string      `json:"error_message"`
	PublishedAt  *time.Time  `json:"published_at"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// ResultStatus represents the outcome of a single platform dispatch
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
)

// PostResult is the outcome of one dispatch attempt against one platform
type PostResult struct {
	Platform     string       `json:"platform"`
	Status       ResultStatus `json:"status"`
	ExternalID   string       `json:"external_id,omitempty"` // platform-side post identifier
	URL          string       `json:"url,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	ErrorCode    string       `json:"error_code,omitempty"`
}

// Payload returns the result as a JSON column value for queue item storage
func (r PostResult) Payload() JSON {
	payload := JSON{
		"platform": r.Platform,
		"status":   string(r.Status),
	}
	if r.ExternalID != "" {
		payload["external_id"] = r.ExternalID
	}
	if r.URL != "" {
		payload["url"] = r.URL
	}
	if r.ErrorMessage != "" {
		payload["error_message"] = r.ErrorMessage
	}
	if r.ErrorCode != "" {
		payload["error_code"] = r.ErrorCode
	}
	return payload
}

// AggregateStatus computes the terminal post status from a set of per-platform
// results: published when all succeeded, failed when none did, partial otherwise.
func AggregateStatus(results []PostResult) PostStatus {
	if len(results) == 0 {
		return PostStatusFailed
	}
	successes := 0
	for _, r := range results {
		if r.Status == ResultSuccess {
			successes++
		}
	}
	switch successes {
	case len(results):
		return PostStatusPublished
	case 0:
		return PostStatusFailed
	default:
		return PostStatusPartial
	}
}
