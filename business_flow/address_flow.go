package businessflow

import (
	"context"

	"gorm.io/gorm"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	"github.com/nextstep/storefront/utils"
)

// AddressFlow manages a user's delivery addresses. At most one address per
// user carries the default flag at any time.
type AddressFlow interface {
	ListAddresses(ctx context.Context, user *models.User) (*dto.AddressListResponse, error)
	AddAddress(ctx context.Context, user *models.User, req *dto.SaveAddressRequest) (*dto.AddressResponse, error)
	UpdateAddress(ctx context.Context, user *models.User, addressID uint, req *dto.SaveAddressRequest) (*dto.AddressResponse, error)
	SetDefaultAddress(ctx context.Context, user *models.User, addressID uint) (*dto.AddressResponse, error)
	DeleteAddress(ctx context.Context, user *models.User, addressID uint) (*dto.DeleteAddressResponse, error)
}

// AddressFlowImpl implements the address business flow
type AddressFlowImpl struct {
	addressRepo repository.AddressRepository
	db          *gorm.DB
}

// NewAddressFlow creates a new address flow instance
func NewAddressFlow(addressRepo repository.AddressRepository, db *gorm.DB) AddressFlow {
	return &AddressFlowImpl{
		addressRepo: addressRepo,
		db:          db,
	}
}

// ListAddresses returns the user's addresses, default first
func (s *AddressFlowImpl) ListAddresses(ctx context.Context, user *models.User) (*dto.AddressListResponse, error) {
	addresses, err := s.addressRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, NewBusinessError("ADDRESS_LIST_FAILED", "Failed to list addresses", err)
	}

	out := make([]dto.AddressDTO, 0, len(addresses))
	for _, address := range addresses {
		out = append(out, ToAddressDTO(address))
	}

	return &dto.AddressListResponse{Addresses: out}, nil
}

// AddAddress inserts a new address. The user's first address becomes the
// default automatically.
func (s *AddressFlowImpl) AddAddress(ctx context.Context, user *models.User, req *dto.SaveAddressRequest) (*dto.AddressResponse, error) {
	count, err := s.addressRepo.Count(ctx, models.AddressFilter{UserID: &user.ID})
	if err != nil {
		return nil, NewBusinessError("ADDRESS_ADD_FAILED", "Failed to add address", err)
	}

	address := &models.Address{
		UserID:      user.ID,
		Name:        req.Name,
		Phone:       req.Phone,
		Pincode:     req.Pincode,
		City:        req.City,
		State:       req.State,
		HouseNumber: req.HouseNumber,
		Locality:    req.Locality,
		Landmark:    req.Landmark,
		IsDefault:   utils.ToPtr(count == 0),
		CreatedAt:   utils.UTCNow(),
		UpdatedAt:   utils.UTCNow(),
	}

	if err := s.addressRepo.Save(ctx, address); err != nil {
		return nil, NewBusinessError("ADDRESS_ADD_FAILED", "Failed to add address", err)
	}

	return &dto.AddressResponse{
		Message: "Address added",
		Address: ToAddressDTO(address),
	}, nil
}

// UpdateAddress replaces the mutable fields of an owned address. The
// default flag is not touched here, SetDefaultAddress owns that.
func (s *AddressFlowImpl) UpdateAddress(ctx context.Context, user *models.User, addressID uint, req *dto.SaveAddressRequest) (*dto.AddressResponse, error) {
	address, err := s.addressRepo.ByIDAndUser(ctx, addressID, user.ID)
	if err != nil {
		return nil, NewBusinessError("ADDRESS_UPDATE_FAILED", "Failed to update address", err)
	}
	if address == nil {
		return nil, NewBusinessError("ADDRESS_NOT_FOUND", "Address not found", ErrAddressNotFound)
	}

	address.Name = req.Name
	address.Phone = req.Phone
	address.Pincode = req.Pincode
	address.City = req.City
	address.State = req.State
	address.HouseNumber = req.HouseNumber
	address.Locality = req.Locality
	address.Landmark = req.Landmark

	if err := s.addressRepo.Update(ctx, address); err != nil {
		return nil, NewBusinessError("ADDRESS_UPDATE_FAILED", "Failed to update address", err)
	}

	return &dto.AddressResponse{
		Message: "Address updated",
		Address: ToAddressDTO(address),
	}, nil
}

// SetDefaultAddress moves the default flag to the given address
func (s *AddressFlowImpl) SetDefaultAddress(ctx context.Context, user *models.User, addressID uint) (*dto.AddressResponse, error) {
	address, err := s.addressRepo.ByIDAndUser(ctx, addressID, user.ID)
	if err != nil {
		return nil, NewBusinessError("ADDRESS_DEFAULT_FAILED", "Failed to set default address", err)
	}
	if address == nil {
		return nil, NewBusinessError("ADDRESS_NOT_FOUND", "Address not found", ErrAddressNotFound)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.addressRepo.SetDefault(txCtx, user.ID, addressID)
	})
	if err != nil {
		return nil, NewBusinessError("ADDRESS_DEFAULT_FAILED", "Failed to set default address", err)
	}

	address.IsDefault = utils.ToPtr(true)

	return &dto.AddressResponse{
		Message: "Default address updated",
		Address: ToAddressDTO(address),
	}, nil
}

// DeleteAddress removes an owned address. Deleting the default promotes an
// arbitrary survivor so the single-default invariant holds.
func (s *AddressFlowImpl) DeleteAddress(ctx context.Context, user *models.User, addressID uint) (*dto.DeleteAddressResponse, error) {
	address, err := s.addressRepo.ByIDAndUser(ctx, addressID, user.ID)
	if err != nil {
		return nil, NewBusinessError("ADDRESS_DELETE_FAILED", "Failed to delete address", err)
	}
	if address == nil {
		return nil, NewBusinessError("ADDRESS_NOT_FOUND", "Address not found", ErrAddressNotFound)
	}

	wasDefault := utils.IsTrue(address.IsDefault)
	var promotedID *uint
	var remaining int

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.addressRepo.Delete(txCtx, addressID, user.ID); err != nil {
			return err
		}

		survivors, err := s.addressRepo.ListByUser(txCtx, user.ID)
		if err != nil {
			return err
		}
		remaining = len(survivors)

		if wasDefault && remaining > 0 {
			promoted := survivors[0]
			if err := s.addressRepo.SetDefault(txCtx, user.ID, promoted.ID); err != nil {
				return err
			}
			promotedID = &promoted.ID
		}

		return nil
	})
	if err != nil {
		return nil, NewBusinessError("ADDRESS_DELETE_FAILED", "Failed to delete address", err)
	}

	return &dto.DeleteAddressResponse{
		Message:            "Address deleted",
		PromotedAddressID:  promotedID,
		RemainingAddresses: remaining,
	}, nil
}
