package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/nextstep/storefront/app/dto"
	businessflow "github.com/nextstep/storefront/business_flow"
	"github.com/nextstep/storefront/repository"
)

// AdminHandlerInterface defines the contract for admin panel handlers
type AdminHandlerInterface interface {
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Dashboard(c fiber.Ctx) error
	ListCustomers(c fiber.Ctx) error
	ToggleCustomerBlock(c fiber.Ctx) error
}

// AdminHandler handles admin panel HTTP requests
type AdminHandler struct {
	adminFlow businessflow.AdminFlow
	loginFlow businessflow.LoginFlow
	cookieCfg SessionCookieConfig
	validator *validator.Validate
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminFlow businessflow.AdminFlow, loginFlow businessflow.LoginFlow, cookieCfg SessionCookieConfig) *AdminHandler {
	return &AdminHandler{
		adminFlow: adminFlow,
		loginFlow: loginFlow,
		cookieCfg: cookieCfg,
		validator: newValidator(),
	}
}

// Login authenticates an admin account
func (h *AdminHandler) Login(c fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/login")
	defer cancel()

	result, session, err := h.adminFlow.AdminLogin(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsInvalidCredentials(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		}
		if businessflow.IsAccountBlocked(err) {
			return errorResponse(c, fiber.StatusForbidden, "Account is blocked", "ACCOUNT_BLOCKED", nil)
		}

		log.Println("Admin login failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	setSessionCookie(c, h.cookieCfg, session)

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// Logout destroys the admin session
func (h *AdminHandler) Logout(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/logout")
	defer cancel()

	result, err := h.loginFlow.Logout(ctx, sessionToken(c), currentUser(c), clientMetadata(c))
	if err != nil {
		log.Println("Admin logout failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	clearSessionCookie(c, h.cookieCfg)

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// Dashboard returns aggregate customer stats
func (h *AdminHandler) Dashboard(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/dashboard")
	defer cancel()

	result, err := h.adminFlow.DashboardStats(ctx)
	if err != nil {
		log.Println("Dashboard failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", "DASHBOARD_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Dashboard", result)
}

// ListCustomers returns one filtered, sorted page of customers
func (h *AdminHandler) ListCustomers(c fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))

	q := repository.CustomerListQuery{
		Page:   page,
		Status: c.Query("status", "all"),
		Sort:   c.Query("sort", "dateDesc"),
		Search: c.Query("search"),
	}

	switch q.Status {
	case "all", "active", "blocked":
	default:
		return errorResponse(c, fiber.StatusBadRequest, "Invalid status filter", "INVALID_STATUS", nil)
	}

	switch q.Sort {
	case "nameAsc", "nameDesc", "dateAsc", "dateDesc":
	default:
		return errorResponse(c, fiber.StatusBadRequest, "Invalid sort order", "INVALID_SORT", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/customers")
	defer cancel()

	result, err := h.adminFlow.ListCustomers(ctx, q)
	if err != nil {
		log.Println("Customer listing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list customers", "CUSTOMER_LIST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Customers", result)
}

// ToggleCustomerBlock flips the blocked flag on a customer account
func (h *AdminHandler) ToggleCustomerBlock(c fiber.Ctx) error {
	customerID, err := parseIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid customer id", "INVALID_CUSTOMER_ID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/customers/:id/toggle-block")
	defer cancel()

	result, err := h.adminFlow.ToggleCustomerBlock(ctx, currentUser(c), customerID, clientMetadata(c))
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Customer not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsCannotBlockAdmin(err) {
			return errorResponse(c, fiber.StatusForbidden, "Admin accounts cannot be blocked", "CANNOT_BLOCK_ADMIN", nil)
		}

		log.Println("Toggle block failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to toggle block", "TOGGLE_BLOCK_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}
