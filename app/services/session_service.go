package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	"github.com/nextstep/storefront/utils"
)

// SessionService creates and destroys the opaque-token sessions that back
// the session cookie.
type SessionService interface {
	Establish(ctx context.Context, user *models.User, ipAddress, userAgent string) (*models.Session, error)
	Resolve(ctx context.Context, token string) (*models.Session, error)
	Destroy(ctx context.Context, token string) error
	DestroyAllForUser(ctx context.Context, userID uint) error
}

// SessionServiceImpl implements SessionService
type SessionServiceImpl struct {
	store    repository.SessionStore
	lifetime time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(store repository.SessionStore, lifetime time.Duration) SessionService {
	if lifetime <= 0 {
		lifetime = utils.SessionTimeout
	}
	return &SessionServiceImpl{
		store:    store,
		lifetime: lifetime,
	}
}

// Establish mints a fresh opaque token and stores the session
func (s *SessionServiceImpl) Establish(ctx context.Context, user *models.User, ipAddress, userAgent string) (*models.Session, error) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := utils.UTCNow()
	session := &models.Session{
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
	}
	if ipAddress != "" {
		session.IPAddress = &ipAddress
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Resolve returns the live session for a token, or nil when missing/expired
func (s *SessionServiceImpl) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	return s.store.ByToken(ctx, token)
}

func (s *SessionServiceImpl) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.Delete(ctx, token)
}

func (s *SessionServiceImpl) DestroyAllForUser(ctx context.Context, userID uint) error {
	return s.store.DeleteAllForUser(ctx, userID)
}

// GenerateSecureToken returns n random bytes encoded as unpadded URL-safe
// base64, suitable for use in a cookie.
func GenerateSecureToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
