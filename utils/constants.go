package utils

import (
	"time"
)

// Session and verification time constants
const (
	// SessionTimeout is the lifetime of a login session (24 hours)
	SessionTimeout = 24 * time.Hour

	// SessionTimeoutSeconds is the session lifetime in seconds (86400 seconds = 24 hours)
	SessionTimeoutSeconds = 86400

	// OTPExpiry is the time-to-live for verification codes (10 minutes)
	OTPExpiry = 10 * time.Minute

	// OTPExpirySeconds is the time-to-live for verification codes in seconds (600 seconds = 10 minutes)
	OTPExpirySeconds = 600
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Referral program constants
const (
	// SignupReferralBonus is credited to a new account that signs up with a valid referral code
	SignupReferralBonus = 50

	// ReferralRewardBonus is credited to the referrer once the referred account verifies
	ReferralRewardBonus = 100

	// ReferralCodeLength is the length of generated referral codes
	ReferralCodeLength = 8
)

// Account constants
const (
	// RoleUser is the role of regular storefront customers
	RoleUser = "user"

	// RoleAdmin is the role of back-office administrators
	RoleAdmin = "admin"

	// DefaultProfileImage is assigned to accounts without an uploaded picture
	DefaultProfileImage = "/images/default-profile.png"

	// SignupMethodEmail marks accounts created through the email signup form
	SignupMethodEmail = "email"

	// SignupMethodGoogle marks accounts created through Google OAuth
	SignupMethodGoogle = "google"
)
