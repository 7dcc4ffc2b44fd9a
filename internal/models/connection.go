package models

import (
	"time"

	"golang.org/x/oauth2"
)

// PlatformConnection records that a user has authorized a platform.
// Token material is opaque to the publishing core; exchange and refresh
// happen elsewhere.
type PlatformConnection struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       string     `gorm:"index:idx_user_platform,unique;not null" json:"user_id"`
	Platform     string     `gorm:"index:idx_user_platform,unique;not null" json:"platform"`
	AccessToken  string     `gorm:"not null" json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Active       bool       `gorm:"default:true" json:"active"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Token returns the stored credentials as an oauth2 token
func (c *PlatformConnection) Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
	}
	if c.ExpiresAt != nil {
		t.Expiry = *c.ExpiresAt
	}
	return t
}

// Connected reports whether the connection is usable for publishing:
// marked active and carrying a token that has not expired.
func (c *PlatformConnection) Connected() bool {
	return c.Active && c.Token().Valid()
}
