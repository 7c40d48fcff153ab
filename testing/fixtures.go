// Package testing provides test utilities and database setup for testing the storefront backend
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/utils"
)

// TestPassword is the plaintext password every fixture account is created with
const TestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a verified customer account with a unique email and phone
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	return tf.createUser(utils.RoleUser, true)
}

// CreateUnverifiedUser creates a customer account stuck before OTP verification
func (tf *TestFixtures) CreateUnverifiedUser() (*models.User, error) {
	return tf.createUser(utils.RoleUser, false)
}

// CreateTestAdmin creates a verified back-office administrator account
func (tf *TestFixtures) CreateTestAdmin() (*models.User, error) {
	return tf.createUser(utils.RoleAdmin, true)
}

func (tf *TestFixtures) createUser(role string, verified bool) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	referralCode, err := utils.GenerateReferralCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate referral code: %w", err)
	}

	// Exactly 9 random digits keeps emails and phones unique across fixtures
	randomDigits := fmt.Sprintf("%09d", mathrand.Intn(900000000)+100000000)

	user := &models.User{
		UUID:         uuid.New(),
		FirstName:    "John",
		LastName:     "Doe",
		Email:        fmt.Sprintf("john.doe.%s@example.com", randomDigits),
		Phone:        fmt.Sprintf("9%s", randomDigits),
		PasswordHash: utils.ToPtr(string(hashedPassword)),
		Role:         role,
		SignupMethod: utils.SignupMethodEmail,
		ProfileImage: utils.DefaultProfileImage,
		IsActive:     utils.ToPtr(true),
		IsBlocked:    utils.ToPtr(false),
		IsVerified:   utils.ToPtr(verified),
		ReferralCode: referralCode,
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}
	if verified {
		user.VerifiedAt = utils.ToPtr(utils.UTCNow())
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateTestOTP creates a live verification code for an email address
func (tf *TestFixtures) CreateTestOTP(email, code string) (*models.OTPVerification, error) {
	otp := &models.OTPVerification{
		Email:     email,
		Code:      code,
		CreatedAt: utils.UTCNow(),
		ExpiresAt: utils.UTCNowAdd(utils.OTPExpiry),
	}

	if err := tf.DB.DB.Create(otp).Error; err != nil {
		return nil, fmt.Errorf("failed to create test OTP: %w", err)
	}

	return otp, nil
}

// CreateExpiredOTP creates a verification code that expired an hour ago
func (tf *TestFixtures) CreateExpiredOTP(email, code string) (*models.OTPVerification, error) {
	otp := &models.OTPVerification{
		Email:     email,
		Code:      code,
		CreatedAt: utils.UTCNowAdd(-2 * time.Hour),
		ExpiresAt: utils.UTCNowAdd(-1 * time.Hour),
	}

	if err := tf.DB.DB.Create(otp).Error; err != nil {
		return nil, fmt.Errorf("failed to create expired OTP: %w", err)
	}

	return otp, nil
}

// GenerateSecureToken returns a random URL-safe token for session fixtures
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates a login session for a user
func (tf *TestFixtures) CreateTestSession(user *models.User) (*models.Session, error) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.Session{
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		IPAddress: &ipAddress,
		UserAgent: &userAgent,
		CreatedAt: utils.UTCNow(),
		ExpiresAt: utils.UTCNowAdd(utils.SessionTimeout),
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestAddress creates a delivery address for a user
func (tf *TestFixtures) CreateTestAddress(userID uint, isDefault bool) (*models.Address, error) {
	address := &models.Address{
		UserID:      userID,
		Name:        "John Doe",
		Phone:       fmt.Sprintf("9%09d", mathrand.Intn(900000000)+100000000),
		Pincode:     "560001",
		City:        "Bengaluru",
		State:       "Karnataka",
		HouseNumber: "221B",
		Locality:    "MG Road",
		IsDefault:   utils.ToPtr(isDefault),
		CreatedAt:   utils.UTCNow(),
		UpdatedAt:   utils.UTCNow(),
	}

	if err := tf.DB.DB.Create(address).Error; err != nil {
		return nil, fmt.Errorf("failed to create test address: %w", err)
	}

	return address, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(userID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		UserID:      userID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
