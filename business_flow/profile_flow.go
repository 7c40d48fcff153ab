package businessflow

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/app/services"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	"github.com/nextstep/storefront/utils"
)

// ProfileFlow handles the authenticated account's own profile
type ProfileFlow interface {
	GetProfile(ctx context.Context, user *models.User) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, user *models.User, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UpdateProfileResponse, error)
	ChangePassword(ctx context.Context, user *models.User, req *dto.ChangePasswordRequest, metadata *ClientMetadata) (*dto.ChangePasswordResponse, error)
	UpdateProfileImage(ctx context.Context, user *models.User, imageData []byte, metadata *ClientMetadata) (*dto.UpdateProfileImageResponse, error)
	DeactivateAccount(ctx context.Context, user *models.User, metadata *ClientMetadata) (*dto.DeactivateAccountResponse, error)
}

// ProfileFlowImpl implements the profile business flow
type ProfileFlowImpl struct {
	userRepo    repository.UserRepository
	addressRepo repository.AddressRepository
	auditRepo   repository.AuditLogRepository
	sessionSvc  services.SessionService
	imageSvc    services.ImageService
}

// NewProfileFlow creates a new profile flow instance
func NewProfileFlow(
	userRepo repository.UserRepository,
	addressRepo repository.AddressRepository,
	auditRepo repository.AuditLogRepository,
	sessionSvc services.SessionService,
	imageSvc services.ImageService,
) ProfileFlow {
	return &ProfileFlowImpl{
		userRepo:    userRepo,
		addressRepo: addressRepo,
		auditRepo:   auditRepo,
		sessionSvc:  sessionSvc,
		imageSvc:    imageSvc,
	}
}

// GetProfile returns the account plus its default delivery address
func (s *ProfileFlowImpl) GetProfile(ctx context.Context, user *models.User) (*dto.ProfileResponse, error) {
	resp := &dto.ProfileResponse{User: ToUserDTO(user)}

	defaultAddr, err := s.addressRepo.DefaultForUser(ctx, user.ID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_FETCH_FAILED", "Failed to load profile", err)
	}
	if defaultAddr != nil {
		resp.DefaultAddress = utils.ToPtr(ToAddressDTO(defaultAddr))
	}

	return resp, nil
}

// UpdateProfile edits name and phone
func (s *ProfileFlowImpl) UpdateProfile(ctx context.Context, user *models.User, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UpdateProfileResponse, error) {
	if req.Phone != user.Phone {
		byPhone, err := s.userRepo.ByPhone(ctx, req.Phone)
		if err != nil {
			return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Profile update failed", err)
		}
		if byPhone != nil && byPhone.ID != user.ID {
			return nil, NewBusinessError("PHONE_TAKEN", "Phone number already registered", ErrPhoneAlreadyRegistered)
		}
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Phone = req.Phone

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Profile update failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionProfileUpdated, "Profile updated", true, nil, metadata)

	return &dto.UpdateProfileResponse{
		Message: "Profile updated",
		User:    ToUserDTO(user),
	}, nil
}

// ChangePassword verifies the current password and stores a different one
func (s *ProfileFlowImpl) ChangePassword(ctx context.Context, user *models.User, req *dto.ChangePasswordRequest, metadata *ClientMetadata) (*dto.ChangePasswordResponse, error) {
	if user.PasswordHash == nil {
		return nil, NewBusinessError("OAUTH_ACCOUNT", "This account signs in with Google", ErrGoogleAccountNoPwd)
	}

	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return nil, NewBusinessError("CURRENT_PASSWORD_INCORRECT", "Current password is incorrect", ErrCurrentPasswordIncorrect)
	}

	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.NewPassword)) == nil {
		return nil, NewBusinessError("PASSWORD_UNCHANGED", "New password must differ from the old one", ErrPasswordUnchanged)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(newHash)); err != nil {
		return nil, NewBusinessError("PASSWORD_CHANGE_FAILED", "Password change failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionPasswordChanged, "Password changed", true, nil, metadata)

	return &dto.ChangePasswordResponse{Message: "Password changed"}, nil
}

// UpdateProfileImage stores a normalized image and removes the previous one
func (s *ProfileFlowImpl) UpdateProfileImage(ctx context.Context, user *models.User, imageData []byte, metadata *ClientMetadata) (*dto.UpdateProfileImageResponse, error) {
	publicPath, err := s.imageSvc.StoreProfileImage(user.ID, imageData)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrImageTooLarge):
			return nil, NewBusinessError("IMAGE_TOO_LARGE", "Image exceeds the maximum allowed size", ErrImageTooLarge)
		case errors.Is(err, services.ErrUnsupportedImage):
			return nil, NewBusinessError("UNSUPPORTED_IMAGE", "Unsupported image format", ErrUnsupportedImage)
		default:
			return nil, NewBusinessError("IMAGE_UPLOAD_FAILED", "Image upload failed", err)
		}
	}

	previous := user.ProfileImage
	user.ProfileImage = publicPath

	if err := s.userRepo.Update(ctx, user); err != nil {
		_ = s.imageSvc.Remove(publicPath)
		return nil, NewBusinessError("IMAGE_UPLOAD_FAILED", "Image upload failed", err)
	}

	if previous != utils.DefaultProfileImage {
		_ = s.imageSvc.Remove(previous)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionProfileUpdated, "Profile image updated", true, nil, metadata)

	return &dto.UpdateProfileImageResponse{
		Message:      "Profile image updated",
		ProfileImage: publicPath,
	}, nil
}

// DeactivateAccount disables the account and destroys all of its sessions
func (s *ProfileFlowImpl) DeactivateAccount(ctx context.Context, user *models.User, metadata *ClientMetadata) (*dto.DeactivateAccountResponse, error) {
	if user.IsAdmin() {
		return nil, NewBusinessError("CANNOT_DEACTIVATE_ADMIN", "Admin accounts cannot be deactivated", ErrCannotDeactivateAdmin)
	}

	if err := s.userRepo.SetActive(ctx, user.ID, false); err != nil {
		return nil, NewBusinessError("DEACTIVATION_FAILED", "Account deactivation failed", err)
	}

	if err := s.sessionSvc.DestroyAllForUser(ctx, user.ID); err != nil {
		return nil, NewBusinessError("DEACTIVATION_FAILED", "Account deactivation failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionAccountDeactivated, "Account deactivated", true, nil, metadata)

	return &dto.DeactivateAccountResponse{Message: "Account deactivated"}, nil
}
