// Package businessflow contains the business logic for the application.
package businessflow

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// GenerateOTP returns a uniformly random 6-digit code in [100000, 999999]
func GenerateOTP() (string, error) {
	min := big.NewInt(100000)
	span := big.NewInt(900000) // inclusive upper bound 999999

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	return fmt.Sprintf("%06d", new(big.Int).Add(n, min).Int64()), nil
}

// ToUserDTO converts a user model to UserDTO for API responses
func ToUserDTO(user *models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:               user.ID,
		UUID:             user.UUID.String(),
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		Email:            user.Email,
		Phone:            user.Phone,
		Role:             user.Role,
		ProfileImage:     user.ProfileImage,
		IsVerified:       user.IsVerified,
		ReferralCode:     user.ReferralCode,
		WalletBalance:    user.WalletBalance,
		ReferralEarnings: user.ReferralEarnings,
		CreatedAt:        user.CreatedAt,
		LastLoginAt:      user.LastLoginAt,
	}
}

// ToAddressDTO converts an address model to AddressDTO for API responses
func ToAddressDTO(address *models.Address) dto.AddressDTO {
	return dto.AddressDTO{
		ID:          address.ID,
		Name:        address.Name,
		Phone:       address.Phone,
		Pincode:     address.Pincode,
		City:        address.City,
		State:       address.State,
		HouseNumber: address.HouseNumber,
		Locality:    address.Locality,
		Landmark:    address.Landmark,
		IsDefault:   utils.IsTrue(address.IsDefault),
		CreatedAt:   address.CreatedAt,
	}
}

// ToCustomerSummaryDTO converts a user model to the admin listing shape
func ToCustomerSummaryDTO(user *models.User) dto.CustomerSummaryDTO {
	return dto.CustomerSummaryDTO{
		ID:            user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		Phone:         user.Phone,
		IsBlocked:     utils.IsTrue(user.IsBlocked),
		IsVerified:    utils.IsTrue(user.IsVerified),
		WalletBalance: user.WalletBalance,
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
	}
}

// maskEmail hides most of the local part for display, e.g. jo***@x.com
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}

	local := email[:at]
	if len(local) <= 2 {
		return local[:1] + "***" + email[at:]
	}
	return local[:2] + "***" + email[at:]
}
