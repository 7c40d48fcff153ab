package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/utils"
)

// AddressRepositoryImpl implements AddressRepository interface
type AddressRepositoryImpl struct {
	*BaseRepository[models.Address, models.AddressFilter]
}

// NewAddressRepository creates a new address repository
func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &AddressRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Address, models.AddressFilter](db),
	}
}

// ByIDAndUser retrieves an address only if it belongs to the given user
func (r *AddressRepositoryImpl) ByIDAndUser(ctx context.Context, id, userID uint) (*models.Address, error) {
	db := r.getDB(ctx)

	var address models.Address
	err := db.Where("id = ? AND user_id = ?", id, userID).Last(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find address: %w", err)
	}

	return &address, nil
}

// ListByUser returns all of a user's addresses, default first then newest
func (r *AddressRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.Address, error) {
	filter := models.AddressFilter{UserID: &userID}
	return r.ByFilter(ctx, filter, "is_default DESC, created_at DESC", 0, 0)
}

// DefaultForUser returns the user's default address, or nil if none is set
func (r *AddressRepositoryImpl) DefaultForUser(ctx context.Context, userID uint) (*models.Address, error) {
	filter := models.AddressFilter{UserID: &userID, IsDefault: utils.ToPtr(true)}
	addresses, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find default address: %w", err)
	}

	if len(addresses) == 0 {
		return nil, nil
	}

	return addresses[0], nil
}

// Update persists changed fields of an existing address
func (r *AddressRepositoryImpl) Update(ctx context.Context, address *models.Address) error {
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

	address.UpdatedAt = utils.UTCNow()
	err = db.Save(address).Error
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}

	return nil
}

// SetDefault marks one address as the default and clears the flag on every
// other address of the same user, keeping at most one default per user.
func (r *AddressRepositoryImpl) SetDefault(ctx context.Context, userID, addressID uint) error {
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

	now := utils.UTCNow()
	err = db.Model(&models.Address{}).
		Where("user_id = ? AND id <> ?", userID, addressID).
		Updates(map[string]any{"is_default": false, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("failed to clear default addresses: %w", err)
	}

	err = db.Model(&models.Address{}).
		Where("user_id = ? AND id = ?", userID, addressID).
		Updates(map[string]any{"is_default": true, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("failed to set default address: %w", err)
	}

	return nil
}

// Delete removes an address owned by the given user
func (r *AddressRepositoryImpl) Delete(ctx context.Context, id, userID uint) error {
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

	err = db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Address{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}

	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AddressRepositoryImpl) applyFilter(query *gorm.DB, filter models.AddressFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if filter.City != nil {
		query = query.Where("city = ?", *filter.City)
	}

	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}

	if filter.Pincode != nil {
		query = query.Where("pincode = ?", *filter.Pincode)
	}

	if filter.IsDefault != nil {
		query = query.Where("is_default = ?", *filter.IsDefault)
	}

	return query
}

// ByFilter retrieves addresses based on filter criteria
func (r *AddressRepositoryImpl) ByFilter(ctx context.Context, filter models.AddressFilter, orderBy string, limit, offset int) ([]*models.Address, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Address{}), filter)

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

	var addresses []*models.Address
	err := query.Find(&addresses).Error
	if err != nil {
		return nil, err
	}

	return addresses, nil
}

// Count returns the number of addresses matching the filter
func (r *AddressRepositoryImpl) Count(ctx context.Context, filter models.AddressFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Address{}), filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any address matching the filter exists
func (r *AddressRepositoryImpl) Exists(ctx context.Context, filter models.AddressFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
