package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/utils"
)

// DBSessionStore keeps sessions in the sessions table. It is the fallback
// store when Redis is not configured.
type DBSessionStore struct {
	db *gorm.DB
}

// NewDBSessionStore creates a database-backed session store
func NewDBSessionStore(db *gorm.DB) SessionStore {
	return &DBSessionStore{db: db}
}

func (s *DBSessionStore) Create(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = utils.UTCNow()
	}
	err := s.db.WithContext(ctx).Create(session).Error
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// ByToken returns the live session for a token. Expired rows are deleted on
// the way out and reported as missing.
func (s *DBSessionStore) ByToken(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).Last(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if session.IsExpired() {
		_ = s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
		return nil, nil
	}

	return &session, nil
}

func (s *DBSessionStore) Delete(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser destroys every session of a user, used when an account is
// blocked or deactivated.
func (s *DBSessionStore) DeleteAllForUser(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}
