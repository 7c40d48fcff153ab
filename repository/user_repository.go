// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/utils"
)

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{
		BaseRepository: NewBaseRepository[models.User, models.UserFilter](db),
	}
}

// ByEmail retrieves a user by email address (stored lowercase)
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	db := r.getDB(ctx)

	var user models.User
	err := db.Where("email = ?", strings.ToLower(email)).Last(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return &user, nil
}

// ByPhone retrieves a user by phone number
func (r *UserRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.User, error) {
	filter := models.UserFilter{Phone: &phone}
	users, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by phone: %w", err)
	}

	if len(users) == 0 {
		return nil, nil
	}

	return users[0], nil
}

// ByReferralCode retrieves a user by their referral code
func (r *UserRepositoryImpl) ByReferralCode(ctx context.Context, code string) (*models.User, error) {
	filter := models.UserFilter{ReferralCode: &code}
	users, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by referral code: %w", err)
	}

	if len(users) == 0 {
		return nil, nil
	}

	return users[0], nil
}

// Update persists changed fields of an existing user
func (r *UserRepositoryImpl) Update(ctx context.Context, user *models.User) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	user.UpdatedAt = utils.UTCNow()
	err = db.Save(user).Error
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	return r.updateColumns(ctx, userID, map[string]any{
		"password_hash": passwordHash,
	})
}

// MarkVerified flips the verification flag and records when it happened
func (r *UserRepositoryImpl) MarkVerified(ctx context.Context, userID uint, verifiedAt time.Time) error {
	return r.updateColumns(ctx, userID, map[string]any{
		"is_verified": true,
		"verified_at": verifiedAt,
	})
}

// UpdateLastLogin records the most recent successful login
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.updateColumns(ctx, userID, map[string]any{
		"last_login_at": at,
	})
}

// SetBlocked sets the blocked flag
func (r *UserRepositoryImpl) SetBlocked(ctx context.Context, userID uint, blocked bool) error {
	return r.updateColumns(ctx, userID, map[string]any{
		"is_blocked": blocked,
	})
}

// SetActive sets the active flag
func (r *UserRepositoryImpl) SetActive(ctx context.Context, userID uint, active bool) error {
	return r.updateColumns(ctx, userID, map[string]any{
		"is_active": active,
	})
}

// CreditWallet adds amount to the wallet balance, optionally counting it
// toward lifetime referral earnings as well.
func (r *UserRepositoryImpl) CreditWallet(ctx context.Context, userID uint, amount int64, asReferralEarnings bool) error {
	columns := map[string]any{
		"wallet_balance": gorm.Expr("wallet_balance + ?", amount),
	}
	if asReferralEarnings {
		columns["referral_earnings"] = gorm.Expr("referral_earnings + ?", amount)
	}
	return r.updateColumns(ctx, userID, columns)
}

func (r *UserRepositoryImpl) updateColumns(ctx context.Context, userID uint, columns map[string]any) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	columns["updated_at"] = utils.UTCNow()
	err = db.Model(&models.User{}).Where("id = ?", userID).Updates(columns).Error
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}

	return nil
}

// ListCustomers returns one page of role=user accounts plus the total count
// matching the status and search filters.
func (r *UserRepositoryImpl) ListCustomers(ctx context.Context, q CustomerListQuery) ([]*models.User, int64, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.User{}).Where("role = ?", utils.RoleUser)

	switch q.Status {
	case "active":
		query = query.Where("is_blocked = ?", false)
	case "blocked":
		query = query.Where("is_blocked = ?", true)
	}

	if q.Search != "" {
		// LOWER on both sides keeps the match case-insensitive on
		// Postgres and sqlite alike.
		pattern := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	switch q.Sort {
	case "nameAsc":
		query = query.Order("first_name ASC")
	case "nameDesc":
		query = query.Order("first_name DESC")
	case "dateAsc":
		query = query.Order("created_at ASC")
	default: // dateDesc
		query = query.Order("created_at DESC")
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	var users []*models.User
	err := query.Limit(pageSize).Offset((page - 1) * pageSize).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}

	return users, total, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *UserRepositoryImpl) applyFilter(query *gorm.DB, filter models.UserFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}

	if filter.Email != nil {
		query = query.Where("email = ?", strings.ToLower(*filter.Email))
	}

	if filter.Phone != nil {
		query = query.Where("phone = ?", *filter.Phone)
	}

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}

	if filter.ReferralCode != nil {
		query = query.Where("referral_code = ?", *filter.ReferralCode)
	}

	if filter.ReferredByID != nil {
		query = query.Where("referred_by_id = ?", *filter.ReferredByID)
	}

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	if filter.IsBlocked != nil {
		query = query.Where("is_blocked = ?", *filter.IsBlocked)
	}

	if filter.IsVerified != nil {
		query = query.Where("is_verified = ?", *filter.IsVerified)
	}

	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}

	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	return query
}

// ByFilter retrieves users based on filter criteria
func (r *UserRepositoryImpl) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.User{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var users []*models.User
	err := query.Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

// Count returns the number of users matching the filter
func (r *UserRepositoryImpl) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.User{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any user matching the filter exists
func (r *UserRepositoryImpl) Exists(ctx context.Context, filter models.UserFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
