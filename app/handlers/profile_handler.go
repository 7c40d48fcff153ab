package handlers

import (
	"io"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/nextstep/storefront/app/dto"
	businessflow "github.com/nextstep/storefront/business_flow"
)

// ProfileHandlerInterface defines the contract for profile handlers
type ProfileHandlerInterface interface {
	GetProfile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
	ChangePassword(c fiber.Ctx) error
	UpdateProfileImage(c fiber.Ctx) error
	DeactivateAccount(c fiber.Ctx) error
}

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profileFlow businessflow.ProfileFlow
	cookieCfg   SessionCookieConfig
	validator   *validator.Validate
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileFlow businessflow.ProfileFlow, cookieCfg SessionCookieConfig) *ProfileHandler {
	return &ProfileHandler{
		profileFlow: profileFlow,
		cookieCfg:   cookieCfg,
		validator:   newValidator(),
	}
}

// GetProfile returns the authenticated account with its default address
func (h *ProfileHandler) GetProfile(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/profile")
	defer cancel()

	result, err := h.profileFlow.GetProfile(ctx, currentUser(c))
	if err != nil {
		log.Println("Profile fetch failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load profile", "PROFILE_FETCH_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Profile", result)
}

// UpdateProfile edits name and phone
func (h *ProfileHandler) UpdateProfile(c fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profile")
	defer cancel()

	result, err := h.profileFlow.UpdateProfile(ctx, currentUser(c), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsPhoneAlreadyRegistered(err) {
			return errorResponse(c, fiber.StatusConflict, "Phone number already registered", "PHONE_EXISTS", nil)
		}

		log.Println("Profile update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Profile update failed", "PROFILE_UPDATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ChangePassword changes the password of the authenticated account
func (h *ProfileHandler) ChangePassword(c fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profile/password")
	defer cancel()

	result, err := h.profileFlow.ChangePassword(ctx, currentUser(c), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCurrentPasswordIncorrect(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Current password is incorrect", "CURRENT_PASSWORD_INCORRECT", nil)
		}
		if businessflow.IsPasswordUnchanged(err) {
			return errorResponse(c, fiber.StatusBadRequest, "New password must differ from the old one", "PASSWORD_UNCHANGED", nil)
		}

		log.Println("Password change failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Password change failed", "PASSWORD_CHANGE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// UpdateProfileImage accepts a multipart "image" file
func (h *ProfileHandler) UpdateProfileImage(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Image file is required", "IMAGE_REQUIRED", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Failed to read image", "IMAGE_READ_FAILED", nil)
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Failed to read image", "IMAGE_READ_FAILED", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/profile/image")
	defer cancel()

	result, err := h.profileFlow.UpdateProfileImage(ctx, currentUser(c), imageData, clientMetadata(c))
	if err != nil {
		if businessflow.IsImageTooLarge(err) {
			return errorResponse(c, fiber.StatusRequestEntityTooLarge, "Image exceeds the maximum allowed size", "IMAGE_TOO_LARGE", nil)
		}
		if businessflow.IsUnsupportedImage(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Unsupported image format", "UNSUPPORTED_IMAGE", nil)
		}

		log.Println("Profile image update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Image upload failed", "IMAGE_UPLOAD_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// DeactivateAccount disables the account and ends the session
func (h *ProfileHandler) DeactivateAccount(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/profile/deactivate")
	defer cancel()

	result, err := h.profileFlow.DeactivateAccount(ctx, currentUser(c), clientMetadata(c))
	if err != nil {
		if businessflow.IsCannotDeactivateAdmin(err) {
			return errorResponse(c, fiber.StatusForbidden, "Admin accounts cannot be deactivated", "CANNOT_DEACTIVATE_ADMIN", nil)
		}

		log.Println("Account deactivation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Account deactivation failed", "DEACTIVATION_FAILED", nil)
	}

	clearSessionCookie(c, h.cookieCfg)

	return successResponse(c, fiber.StatusOK, result.Message, result)
}
