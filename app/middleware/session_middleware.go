// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/app/services"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	"github.com/nextstep/storefront/utils"
)

// Locals keys written by the session gate
const (
	LocalsCurrentUser  = "current_user"
	LocalsSessionToken = "session_token"
)

// SessionGate resolves the session cookie into a user and guards routes
type SessionGate struct {
	sessionSvc services.SessionService
	userRepo   repository.UserRepository
	cookieName string
}

// NewSessionGate creates the session gate middleware set
func NewSessionGate(sessionSvc services.SessionService, userRepo repository.UserRepository, cookieName string) *SessionGate {
	return &SessionGate{
		sessionSvc: sessionSvc,
		userRepo:   userRepo,
		cookieName: cookieName,
	}
}

// resolve loads the session and its user. A nil user with a nil error means
// there is no usable session.
func (g *SessionGate) resolve(ctx context.Context, c fiber.Ctx) (*models.User, string, error) {
	token := c.Cookies(g.cookieName)
	if token == "" {
		return nil, "", nil
	}

	session, err := g.sessionSvc.Resolve(ctx, token)
	if err != nil {
		return nil, token, err
	}
	if session == nil {
		return nil, token, nil
	}

	user, err := g.userRepo.ByID(ctx, session.UserID)
	if err != nil {
		return nil, token, err
	}
	if user == nil {
		// the account vanished, the session is worthless
		_ = g.sessionSvc.Destroy(ctx, token)
		return nil, token, nil
	}

	return user, token, nil
}

// RequireUser admits only live sessions bound to unblocked, verified accounts
func (g *SessionGate) RequireUser() fiber.Handler {
	return func(c fiber.Ctx) error {
		ctx := c.Context()

		user, token, err := g.resolve(ctx, c)
		if err != nil {
			return gateError(c, fiber.StatusInternalServerError, "Session lookup failed", "SESSION_LOOKUP_FAILED", nil)
		}
		if user == nil {
			return gateError(c, fiber.StatusUnauthorized, "Login required", "UNAUTHENTICATED", fiber.Map{"redirect": "/user/login"})
		}

		if utils.IsTrue(user.IsBlocked) {
			_ = g.sessionSvc.Destroy(ctx, token)
			return gateError(c, fiber.StatusForbidden, "Account is blocked", "ACCOUNT_BLOCKED", fiber.Map{"redirect": "/user/login"})
		}

		if !utils.IsTrue(user.IsActive) {
			_ = g.sessionSvc.Destroy(ctx, token)
			return gateError(c, fiber.StatusForbidden, "Account is inactive", "ACCOUNT_INACTIVE", fiber.Map{"redirect": "/user/login"})
		}

		if !utils.IsTrue(user.IsVerified) {
			return gateError(c, fiber.StatusConflict, "Account not verified", "ACCOUNT_NOT_VERIFIED", fiber.Map{
				"flow":  models.OTPFlowLogin,
				"email": user.Email,
			})
		}

		c.Locals(LocalsCurrentUser, user)
		c.Locals(LocalsSessionToken, token)

		return c.Next()
	}
}

// AdminOnly must run after RequireUser and rejects non-admin roles with a
// plain denial, not a redirect
func (g *SessionGate) AdminOnly() fiber.Handler {
	return func(c fiber.Ctx) error {
		user, _ := c.Locals(LocalsCurrentUser).(*models.User)
		if user == nil || !user.IsAdmin() {
			return gateError(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		return c.Next()
	}
}

// RedirectIfAuthenticated bounces already-logged-in callers off the login
// and signup endpoints.
func (g *SessionGate) RedirectIfAuthenticated() fiber.Handler {
	return func(c fiber.Ctx) error {
		user, _, err := g.resolve(c.Context(), c)
		if err == nil && user != nil && user.CanLogin() && utils.IsTrue(user.IsVerified) {
			redirect := "/"
			if user.IsAdmin() {
				redirect = "/admin/dashboard"
			}
			return c.Status(fiber.StatusSeeOther).JSON(dto.APIResponse{
				Success: true,
				Message: "Already logged in",
				Data:    fiber.Map{"redirect": redirect},
			})
		}
		return c.Next()
	}
}

// LoadUser resolves the session when present but never blocks the request
func (g *SessionGate) LoadUser() fiber.Handler {
	return func(c fiber.Ctx) error {
		user, token, err := g.resolve(c.Context(), c)
		if err == nil && user != nil && user.CanLogin() {
			c.Locals(LocalsCurrentUser, user)
			c.Locals(LocalsSessionToken, token)
		}
		return c.Next()
	}
}

func gateError(c fiber.Ctx, statusCode int, message, code string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    code,
			Details: details,
		},
	})
}
