// Package businessflow contains the core business logic and use cases for storefront account workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Account-related errors
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrPhoneAlreadyRegistered = errors.New("phone number already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrAccountBlocked         = errors.New("account is blocked")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrAccountNotVerified     = errors.New("account is not verified")
	ErrAlreadyVerified        = errors.New("account already verified")
	ErrNotAnAdmin             = errors.New("account is not an admin")
	ErrInvalidReferralCode    = errors.New("referral code not recognized")

	// OTP-related errors
	ErrOTPNotFound    = errors.New("no pending verification code")
	ErrOTPExpired     = errors.New("verification code has expired")
	ErrOTPMismatch    = errors.New("verification code is incorrect")
	ErrInvalidOTPFlow = errors.New("invalid verification flow")

	// Password errors
	ErrPasswordUnchanged        = errors.New("new password must differ from the old one")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")

	// Address errors
	ErrAddressNotFound = errors.New("address not found")

	// Admin errors
	ErrCannotBlockAdmin      = errors.New("admin accounts cannot be blocked")
	ErrCannotDeactivateAdmin = errors.New("admin accounts cannot be deactivated")

	// Profile errors
	ErrImageTooLarge      = errors.New("image exceeds the maximum allowed size")
	ErrUnsupportedImage   = errors.New("unsupported image format")
	ErrGoogleAccountNoPwd = errors.New("google accounts have no password to change")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsEmailAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrEmailAlreadyRegistered)
}

func IsPhoneAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrPhoneAlreadyRegistered)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAccountBlocked(err error) bool {
	return errors.Is(err, ErrAccountBlocked)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsAccountNotVerified(err error) bool {
	return errors.Is(err, ErrAccountNotVerified)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsNotAnAdmin(err error) bool {
	return errors.Is(err, ErrNotAnAdmin)
}

func IsInvalidReferralCode(err error) bool {
	return errors.Is(err, ErrInvalidReferralCode)
}

func IsOTPNotFound(err error) bool {
	return errors.Is(err, ErrOTPNotFound)
}

func IsOTPExpired(err error) bool {
	return errors.Is(err, ErrOTPExpired)
}

func IsOTPMismatch(err error) bool {
	return errors.Is(err, ErrOTPMismatch)
}

func IsInvalidOTPFlow(err error) bool {
	return errors.Is(err, ErrInvalidOTPFlow)
}

func IsPasswordUnchanged(err error) bool {
	return errors.Is(err, ErrPasswordUnchanged)
}

func IsCurrentPasswordIncorrect(err error) bool {
	return errors.Is(err, ErrCurrentPasswordIncorrect)
}

func IsAddressNotFound(err error) bool {
	return errors.Is(err, ErrAddressNotFound)
}

func IsCannotBlockAdmin(err error) bool {
	return errors.Is(err, ErrCannotBlockAdmin)
}

func IsCannotDeactivateAdmin(err error) bool {
	return errors.Is(err, ErrCannotDeactivateAdmin)
}

func IsImageTooLarge(err error) bool {
	return errors.Is(err, ErrImageTooLarge)
}

func IsUnsupportedImage(err error) bool {
	return errors.Is(err, ErrUnsupportedImage)
}
