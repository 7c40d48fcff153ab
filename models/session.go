// Package models contains domain entities and business models for the storefront
package models

import (
	"time"

	"github.com/nextstep/storefront/utils"
)

// Session is an opaque server-side login session. The raw token is the
// only thing the client ever sees, delivered through an httpOnly cookie.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"size:255;not null;uniqueIndex:uk_sessions_token" json:"-"` // Never serialize the token
	UserID    uint      `gorm:"not null;index:idx_sessions_user_id" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;references:ID" json:"-"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	IPAddress *string   `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent *string   `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index:idx_sessions_expires_at" json:"expires_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// SessionFilter represents filter criteria for session queries
type SessionFilter struct {
	ID            *uint
	UserID        *uint
	Role          *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
}

func (s *Session) IsExpired() bool {
	return utils.IsExpired(s.ExpiresAt)
}
