// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/nextstep/storefront/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for storefront accounts
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByPhone(ctx context.Context, phone string) (*models.User, error)
	ByReferralCode(ctx context.Context, code string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	MarkVerified(ctx context.Context, userID uint, verifiedAt time.Time) error
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
	SetBlocked(ctx context.Context, userID uint, blocked bool) error
	SetActive(ctx context.Context, userID uint, active bool) error
	CreditWallet(ctx context.Context, userID uint, amount int64, asReferralEarnings bool) error
	ListCustomers(ctx context.Context, q CustomerListQuery) ([]*models.User, int64, error)
}

// CustomerListQuery captures the admin customer listing parameters.
type CustomerListQuery struct {
	Status   string // all, active, blocked
	Sort     string // nameAsc, nameDesc, dateAsc, dateDesc
	Search   string // case-insensitive substring over first name, last name, email
	Page     int    // 1-based
	PageSize int
}

// OTPVerificationRepository defines operations for verification codes
type OTPVerificationRepository interface {
	Repository[models.OTPVerification, models.OTPVerificationFilter]
	ByEmail(ctx context.Context, email string) (*models.OTPVerification, error)
	Upsert(ctx context.Context, otp *models.OTPVerification) error
	DeleteByEmail(ctx context.Context, email string) error
}

// AddressRepository defines operations for delivery addresses
type AddressRepository interface {
	Repository[models.Address, models.AddressFilter]
	ByIDAndUser(ctx context.Context, id, userID uint) (*models.Address, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Address, error)
	DefaultForUser(ctx context.Context, userID uint) (*models.Address, error)
	Update(ctx context.Context, address *models.Address) error
	SetDefault(ctx context.Context, userID, addressID uint) error
	Delete(ctx context.Context, id, userID uint) error
}

// SessionStore holds login sessions keyed by their opaque token. Backed by
// Redis when the cache is enabled, by the database otherwise.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	ByToken(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID uint) error
}

// AuditLogRepository defines operations for audit log entries
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
}
