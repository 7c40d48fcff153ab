package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/nextstep/storefront/app/dto"
	businessflow "github.com/nextstep/storefront/business_flow"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Signup(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	VerifyOTP(c fiber.Ctx) error
	ResendOTP(c fiber.Ctx) error
	ForgotPassword(c fiber.Ctx) error
	ResetPassword(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	signupFlow businessflow.SignupFlow
	loginFlow  businessflow.LoginFlow
	cookieCfg  SessionCookieConfig
	validator  *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(signupFlow businessflow.SignupFlow, loginFlow businessflow.LoginFlow, cookieCfg SessionCookieConfig) *AuthHandler {
	return &AuthHandler{
		signupFlow: signupFlow,
		loginFlow:  loginFlow,
		cookieCfg:  cookieCfg,
		validator:  newValidator(),
	}
}

// Signup starts account creation and sends a verification code
func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/signup")
	defer cancel()

	result, err := h.signupFlow.Signup(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsEmailAlreadyRegistered(err) {
			return errorResponse(c, fiber.StatusConflict, "Email already registered", "EMAIL_EXISTS", nil)
		}
		if businessflow.IsPhoneAlreadyRegistered(err) {
			return errorResponse(c, fiber.StatusConflict, "Phone number already registered", "PHONE_EXISTS", nil)
		}

		log.Println("Signup failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Signup failed", "SIGNUP_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// Login authenticates with email and password
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, session, err := h.loginFlow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsInvalidCredentials(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", "INVALID_CREDENTIALS", nil)
		}
		if businessflow.IsAccountBlocked(err) {
			return errorResponse(c, fiber.StatusForbidden, "Account is blocked", "ACCOUNT_BLOCKED", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return errorResponse(c, fiber.StatusForbidden, "Account is inactive", "ACCOUNT_INACTIVE", nil)
		}

		log.Println("Login failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	if session != nil {
		setSessionCookie(c, h.cookieCfg, session)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// Logout destroys the caller's session and clears the cookie
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/auth/logout")
	defer cancel()

	result, err := h.loginFlow.Logout(ctx, sessionToken(c), currentUser(c), clientMetadata(c))
	if err != nil {
		log.Println("Logout failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	clearSessionCookie(c, h.cookieCfg)

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// VerifyOTP validates a code and completes the flow it belongs to
func (h *AuthHandler) VerifyOTP(c fiber.Ctx) error {
	var req dto.OTPVerificationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/verify-otp")
	defer cancel()

	result, session, err := h.signupFlow.VerifyOTP(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsOTPNotFound(err) || businessflow.IsOTPMismatch(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid verification code", "INVALID_OTP", nil)
		}
		if businessflow.IsOTPExpired(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Verification code expired, request a new one", "OTP_EXPIRED", nil)
		}
		if businessflow.IsInvalidOTPFlow(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid verification flow", "INVALID_FLOW", nil)
		}

		log.Println("OTP verification failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Verification failed", "VERIFICATION_FAILED", nil)
	}

	if session != nil {
		setSessionCookie(c, h.cookieCfg, session)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ResendOTP reissues a code for an existing account
func (h *AuthHandler) ResendOTP(c fiber.Ctx) error {
	var req dto.OTPResendRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/resend-otp")
	defer cancel()

	result, err := h.signupFlow.ResendOTP(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsAlreadyVerified(err) {
			return errorResponse(c, fiber.StatusConflict, "Account already verified", "ALREADY_VERIFIED", nil)
		}

		log.Println("OTP resend failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Resend failed", "RESEND_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ForgotPassword issues a recovery code
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/forgot-password")
	defer cancel()

	result, err := h.loginFlow.ForgotPassword(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "No account with that email", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountBlocked(err) {
			return errorResponse(c, fiber.StatusForbidden, "Account is blocked", "ACCOUNT_BLOCKED", nil)
		}

		log.Println("Forgot password failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Password recovery failed", "FORGOT_PASSWORD_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ResetPassword replaces the password after a verified recovery code
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/auth/reset-password")
	defer cancel()

	result, err := h.loginFlow.ResetPassword(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "No account with that email", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsPasswordUnchanged(err) {
			return errorResponse(c, fiber.StatusBadRequest, "New password must differ from the old one", "PASSWORD_UNCHANGED", nil)
		}

		log.Println("Password reset failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Password reset failed", "RESET_PASSWORD_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}
