// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// SignupRequest represents the signup form data
type SignupRequest struct {
	FirstName       string  `json:"first_name" validate:"required,min=2,max=60,alpha_space"`
	LastName        string  `json:"last_name" validate:"required,min=2,max=60,alpha_space"`
	Email           string  `json:"email" validate:"required,email,max=255"`
	Phone           string  `json:"phone" validate:"required,indian_mobile"`
	Password        string  `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=Password"`
	ReferralCode    *string `json:"referral_code,omitempty" validate:"omitempty,len=8,alphanum"`
}

// SignupResponse represents the response after successful signup initiation
type SignupResponse struct {
	Message      string    `json:"message"`
	Email        string    `json:"email"` // masked for display
	Flow         string    `json:"flow"`
	OTPSent      bool      `json:"otp_sent"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`
}

// LoginRequest represents the login form data
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response after a login attempt. When the
// account is unverified a fresh code is issued and NeedsVerification is set
// instead of establishing a session.
type LoginResponse struct {
	Message           string   `json:"message"`
	Redirect          string   `json:"redirect,omitempty"`
	NeedsVerification bool     `json:"needs_verification"`
	Flow              string   `json:"flow,omitempty"`
	User              *UserDTO `json:"user,omitempty"`
}

// OTPVerificationRequest represents the OTP verification request
type OTPVerificationRequest struct {
	Email   string `json:"email" validate:"required,email,max=255"`
	OTPCode string `json:"otp_code" validate:"required,len=6,numeric"`
	Flow    string `json:"flow" validate:"required,oneof=signup login forgot-password"`
}

// OTPVerificationResponse represents the response after OTP verification
type OTPVerificationResponse struct {
	Message  string   `json:"message"`
	Redirect string   `json:"redirect,omitempty"`
	Verified bool     `json:"verified"`
	User     *UserDTO `json:"user,omitempty"`
}

// OTPResendRequest represents the OTP resend request
type OTPResendRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Flow  string `json:"flow" validate:"required,oneof=signup login forgot-password"`
}

// OTPResendResponse represents the response after an OTP resend
type OTPResendResponse struct {
	Message      string    `json:"message"`
	Email        string    `json:"email"`
	OTPSent      bool      `json:"otp_sent"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`
}

// ForgotPasswordRequest starts the password recovery flow
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// ForgotPasswordResponse represents the response after recovery initiation
type ForgotPasswordResponse struct {
	Message      string    `json:"message"`
	Email        string    `json:"email"`
	Flow         string    `json:"flow"`
	OTPSent      bool      `json:"otp_sent"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`
}

// ResetPasswordRequest replaces the password after a verified recovery code
type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ResetPasswordResponse represents the response after a password reset
type ResetPasswordResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// LogoutResponse represents the response after logout
type LogoutResponse struct {
	Message string `json:"message"`
}

// UserDTO represents account data for API responses
type UserDTO struct {
	ID               uint       `json:"id"`
	UUID             string     `json:"uuid"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Role             string     `json:"role"`
	ProfileImage     string     `json:"profile_image"`
	IsVerified       *bool      `json:"is_verified"`
	ReferralCode     string     `json:"referral_code"`
	WalletBalance    int64      `json:"wallet_balance"`
	ReferralEarnings int64      `json:"referral_earnings"`
	CreatedAt        time.Time  `json:"created_at"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
}
