package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"

	businessflow "github.com/nextstep/storefront/business_flow"
)

// HomeHandlerInterface defines the contract for the landing page handler
type HomeHandlerInterface interface {
	Home(c fiber.Ctx) error
}

// HomeHandler serves the storefront landing page
type HomeHandler struct {
	homeFlow businessflow.HomeFlow
}

// NewHomeHandler creates a new home handler
func NewHomeHandler(homeFlow businessflow.HomeFlow) *HomeHandler {
	return &HomeHandler{homeFlow: homeFlow}
}

// Home returns the landing page payload, personalized when a session exists
func (h *HomeHandler) Home(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/home")
	defer cancel()

	result, err := h.homeFlow.Home(ctx, currentUser(c))
	if err != nil {
		log.Println("Home failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load home", "HOME_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Home", result)
}
