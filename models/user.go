// Package models contains domain entities and business models for the storefront
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nextstep/storefront/utils"
)

type User struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`

	FirstName string `gorm:"size:255;not null" json:"first_name"`
	LastName  string `gorm:"size:255;not null" json:"last_name"`
	Email     string `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	Phone     string `gorm:"size:15;not null;uniqueIndex:uk_users_phone" json:"phone"`

	// Nil for accounts created through Google OAuth
	PasswordHash *string `gorm:"size:255" json:"-"` // Never serialize password hash

	Role         string `gorm:"size:20;not null;default:user;index:idx_users_role" json:"role"`
	SignupMethod string `gorm:"size:20;not null;default:email" json:"signup_method"`
	ProfileImage string `gorm:"size:512;not null;default:/images/default-profile.png" json:"profile_image"`

	// Status and verification
	IsActive   *bool `gorm:"default:true;index:idx_users_is_active" json:"is_active"`
	IsBlocked  *bool `gorm:"default:false;index:idx_users_is_blocked" json:"is_blocked"`
	IsVerified *bool `gorm:"default:false" json:"is_verified"`

	// Referral program
	ReferralCode       string  `gorm:"size:16;not null;uniqueIndex:uk_users_referral_code" json:"referral_code"`
	ReferredByID       *uint   `gorm:"index:idx_users_referred_by_id" json:"referred_by_id,omitempty"`
	ReferredBy         *User   `gorm:"foreignKey:ReferredByID;references:ID" json:"referred_by,omitempty"`
	WalletBalance      int64   `gorm:"not null;default:0" json:"wallet_balance"`
	ReferralEarnings   int64   `gorm:"not null;default:0" json:"referral_earnings"`
	IsReferralRewarded *bool   `gorm:"default:false" json:"is_referral_rewarded"`
	ReferredUsers      []User  `gorm:"foreignKey:ReferredByID" json:"-"`

	// Timestamps
	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP;index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	// Relations
	Addresses []Address  `gorm:"foreignKey:UserID" json:"-"`
	AuditLogs []AuditLog `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	Phone         *string
	Role          *string
	ReferralCode  *string
	ReferredByID  *uint
	IsActive      *bool
	IsBlocked     *bool
	IsVerified    *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == utils.RoleAdmin
}

// CanLogin reports whether the account may authenticate at all.
// Verification is checked separately because unverified accounts are
// routed to the OTP entry step instead of being rejected.
func (u *User) CanLogin() bool {
	return utils.IsTrue(u.IsActive) && !utils.IsTrue(u.IsBlocked)
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
