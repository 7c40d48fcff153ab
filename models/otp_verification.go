// Package models contains domain entities and business models for the storefront
package models

import (
	"time"
)

// OTPVerification holds the single live verification code for an email address.
// The unique index on email enforces at most one pending code per account;
// issuing a new code replaces the previous row.
type OTPVerification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:uk_otp_email" json:"email"`
	Code      string    `gorm:"size:6;not null" json:"-"` // Never serialize the code
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index:idx_otp_expires_at" json:"expires_at"`
}

func (OTPVerification) TableName() string {
	return "otp_verifications"
}

// OTP flow tags carried between the issue step and the verify step
const (
	OTPFlowSignup         = "signup"
	OTPFlowLogin          = "login"
	OTPFlowForgotPassword = "forgot-password"
)

// OTPVerificationFilter represents filter criteria for verification code queries
type OTPVerificationFilter struct {
	ID            *uint
	Email         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
}

func (o *OTPVerification) IsExpired() bool {
	return !time.Now().UTC().Before(o.ExpiresAt)
}

func (o *OTPVerification) Matches(code string) bool {
	return !o.IsExpired() && o.Code == code
}
