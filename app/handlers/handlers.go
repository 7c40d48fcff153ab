// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/nextstep/storefront/app/dto"
	businessflow "github.com/nextstep/storefront/business_flow"
	"github.com/nextstep/storefront/models"
)

// Locals keys shared between the session middleware and the handlers
const (
	LocalsCurrentUser  = "current_user"
	LocalsSessionToken = "session_token"
)

// SessionCookieConfig describes how the session cookie is written
type SessionCookieConfig struct {
	Name   string
	Secure bool
}

func errorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// newValidator builds the shared validator with the custom storefront rules
func newValidator() *validator.Validate {
	v := validator.New()

	// letters and spaces only
	v.RegisterValidation("alpha_space", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || char == ' ') {
				return false
			}
		}
		return true
	})

	// 10-digit mobile starting with 6-9
	v.RegisterValidation("indian_mobile", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if len(value) != 10 {
			return false
		}
		if value[0] < '6' || value[0] > '9' {
			return false
		}
		for _, char := range value[1:] {
			if char < '0' || char > '9' {
				return false
			}
		}
		return true
	})

	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "eqfield":
		return err.Field() + " must match " + err.Param()
	case "alpha_space":
		return err.Field() + " must contain only letters and spaces"
	case "indian_mobile":
		return "Mobile number must be 10 digits starting with 6-9"
	case "alphanum":
		return err.Field() + " must contain only letters and numbers"
	case "numeric":
		return err.Field() + " must contain only numbers"
	default:
		return err.Field() + " is invalid"
	}
}

// validationDetails flattens validator errors into user-facing strings
func validationDetails(err error) []string {
	var details []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			details = append(details, getValidationErrorMessage(verr))
		}
	} else {
		details = append(details, err.Error())
	}
	return details
}

// createRequestContext creates a context with request-scoped values for
// observability and timeout. Callers must defer the returned cancel func.
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get(businessflow.RequestIDKey))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)

	return ctx, cancel
}

// clientMetadata collects the caller's network identity for audit trails
func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get(businessflow.RequestIDKey))
	return metadata
}

// currentUser returns the session user stored by the middleware, or nil
func currentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalsCurrentUser).(*models.User)
	return user
}

// sessionToken returns the raw cookie token stored by the middleware
func sessionToken(c fiber.Ctx) string {
	token, _ := c.Locals(LocalsSessionToken).(string)
	return token
}

// setSessionCookie writes the opaque session token cookie
func setSessionCookie(c fiber.Ctx, cfg SessionCookieConfig, session *businessflow.EstablishedSession) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.Name,
		Value:    session.Token,
		Expires:  time.Unix(session.ExpiresAt, 0),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

// clearSessionCookie expires the session cookie
func clearSessionCookie(c fiber.Ctx, cfg SessionCookieConfig) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
