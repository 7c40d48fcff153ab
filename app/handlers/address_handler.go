package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/nextstep/storefront/app/dto"
	businessflow "github.com/nextstep/storefront/business_flow"
)

// AddressHandlerInterface defines the contract for address handlers
type AddressHandlerInterface interface {
	ListAddresses(c fiber.Ctx) error
	AddAddress(c fiber.Ctx) error
	UpdateAddress(c fiber.Ctx) error
	SetDefaultAddress(c fiber.Ctx) error
	DeleteAddress(c fiber.Ctx) error
}

// AddressHandler handles address-related HTTP requests
type AddressHandler struct {
	addressFlow businessflow.AddressFlow
	validator   *validator.Validate
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addressFlow businessflow.AddressFlow) *AddressHandler {
	return &AddressHandler{
		addressFlow: addressFlow,
		validator:   newValidator(),
	}
}

// ListAddresses returns the caller's addresses, default first
func (h *AddressHandler) ListAddresses(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/addresses")
	defer cancel()

	result, err := h.addressFlow.ListAddresses(ctx, currentUser(c))
	if err != nil {
		log.Println("Address listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list addresses", "ADDRESS_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Addresses", result)
}

// AddAddress inserts a new address for the caller
func (h *AddressHandler) AddAddress(c fiber.Ctx) error {
	var req dto.SaveAddressRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/addresses")
	defer cancel()

	result, err := h.addressFlow.AddAddress(ctx, currentUser(c), &req)
	if err != nil {
		log.Println("Address add failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to add address", "ADDRESS_ADD_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, result.Message, result)
}

// UpdateAddress replaces an owned address's fields
func (h *AddressHandler) UpdateAddress(c fiber.Ctx) error {
	addressID, err := parseIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid address id", "INVALID_ADDRESS_ID", nil)
	}

	var req dto.SaveAddressRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/addresses/:id")
	defer cancel()

	result, err := h.addressFlow.UpdateAddress(ctx, currentUser(c), addressID, &req)
	if err != nil {
		if businessflow.IsAddressNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Address not found", "ADDRESS_NOT_FOUND", nil)
		}

		log.Println("Address update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to update address", "ADDRESS_UPDATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// SetDefaultAddress moves the default flag to the given address
func (h *AddressHandler) SetDefaultAddress(c fiber.Ctx) error {
	addressID, err := parseIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid address id", "INVALID_ADDRESS_ID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/addresses/:id/default")
	defer cancel()

	result, err := h.addressFlow.SetDefaultAddress(ctx, currentUser(c), addressID)
	if err != nil {
		if businessflow.IsAddressNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Address not found", "ADDRESS_NOT_FOUND", nil)
		}

		log.Println("Set default address failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to set default address", "ADDRESS_DEFAULT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteAddress removes an owned address
func (h *AddressHandler) DeleteAddress(c fiber.Ctx) error {
	addressID, err := parseIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid address id", "INVALID_ADDRESS_ID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/addresses/:id")
	defer cancel()

	result, err := h.addressFlow.DeleteAddress(ctx, currentUser(c), addressID)
	if err != nil {
		if businessflow.IsAddressNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Address not found", "ADDRESS_NOT_FOUND", nil)
		}

		log.Println("Address delete failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to delete address", "ADDRESS_DELETE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

func parseIDParam(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
