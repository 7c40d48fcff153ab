package businessflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/app/services"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	"github.com/nextstep/storefront/utils"
)

// LoginFlow handles authentication and password recovery
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, *EstablishedSession, error)
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error)
	Logout(ctx context.Context, token string, user *models.User, metadata *ClientMetadata) (*dto.LogoutResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	userRepo        repository.UserRepository
	otpRepo         repository.OTPVerificationRepository
	auditRepo       repository.AuditLogRepository
	sessionSvc      services.SessionService
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	userRepo repository.UserRepository,
	otpRepo repository.OTPVerificationRepository,
	auditRepo repository.AuditLogRepository,
	sessionSvc services.SessionService,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		userRepo:        userRepo,
		otpRepo:         otpRepo,
		auditRepo:       auditRepo,
		sessionSvc:      sessionSvc,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// Login authenticates by email and password. Unverified accounts get a
// fresh code and an OTP-entry response instead of a session.
func (s *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, *EstablishedSession, error) {
	email := strings.ToLower(req.Email)

	user, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	// one generic failure for both unknown email and wrong password
	if user == nil || !checkPassword(user, req.Password) {
		errMsg := "Invalid credentials"
		_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid email or password", ErrInvalidCredentials)
	}

	if utils.IsTrue(user.IsBlocked) {
		errMsg := "Account is blocked"
		_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, nil, NewBusinessError("ACCOUNT_BLOCKED", "Account is blocked", ErrAccountBlocked)
	}

	if !utils.IsTrue(user.IsActive) {
		return nil, nil, NewBusinessError("ACCOUNT_INACTIVE", "Account is inactive", ErrAccountInactive)
	}

	if !utils.IsTrue(user.IsVerified) {
		return s.redirectToVerification(ctx, user, email, metadata)
	}

	ipAddress, userAgent := "", ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session, err := s.sessionSvc.Establish(ctx, user, ipAddress, userAgent)
	if err != nil {
		return nil, nil, NewBusinessError("SESSION_CREATION_FAILED", "Failed to create session", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
		return nil, nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionLoginSuccessful, "Login successful", true, nil, metadata)

	redirect := "/"
	if user.IsAdmin() {
		redirect = "/admin/dashboard"
	}

	return &dto.LoginResponse{
			Message:  "Login successful",
			Redirect: redirect,
			User:     utils.ToPtr(ToUserDTO(user)),
		}, &EstablishedSession{
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt.Unix(),
		}, nil
}

// redirectToVerification silently issues a login-flow code for an
// unverified account
func (s *LoginFlowImpl) redirectToVerification(ctx context.Context, user *models.User, email string, metadata *ClientMetadata) (*dto.LoginResponse, *EstablishedSession, error) {
	otpCode, err := issueCode(ctx, s.otpRepo, email)
	if err != nil {
		return nil, nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionOTPGenerated, "OTP issued for unverified login", true, nil, metadata)

	go func() {
		if err := s.notificationSvc.SendOTPEmail(email, otpCode); err != nil {
			errMsg := fmt.Sprintf("Failed to send OTP email: %v", err)
			_ = createAuditLog(context.Background(), s.auditRepo, user, models.AuditActionOTPDispatchFailed, errMsg, false, &errMsg, metadata)
		}
	}()

	return &dto.LoginResponse{
		Message:           "Account not verified. A verification code was sent to your email.",
		NeedsVerification: true,
		Flow:              models.OTPFlowLogin,
	}, nil, nil
}

// ForgotPassword issues a recovery code for an existing, unblocked account
func (s *LoginFlowImpl) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error) {
	email := strings.ToLower(req.Email)

	user, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("FORGOT_PASSWORD_FAILED", "Password recovery failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "No account with that email", ErrUserNotFound)
	}
	if utils.IsTrue(user.IsBlocked) {
		return nil, NewBusinessError("ACCOUNT_BLOCKED", "Account is blocked", ErrAccountBlocked)
	}
	if user.PasswordHash == nil {
		return nil, NewBusinessError("OAUTH_ACCOUNT", "This account signs in with Google", ErrGoogleAccountNoPwd)
	}

	otpCode, err := issueCode(ctx, s.otpRepo, email)
	if err != nil {
		return nil, NewBusinessError("FORGOT_PASSWORD_FAILED", "Password recovery failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionPasswordResetRequested, "Password reset requested", true, nil, metadata)

	go func() {
		if err := s.notificationSvc.SendOTPEmail(email, otpCode); err != nil {
			errMsg := fmt.Sprintf("Failed to send OTP email: %v", err)
			_ = createAuditLog(context.Background(), s.auditRepo, user, models.AuditActionOTPDispatchFailed, errMsg, false, &errMsg, metadata)
		}
	}()

	return &dto.ForgotPasswordResponse{
		Message:      "A verification code was sent to your email.",
		Email:        maskEmail(email),
		Flow:         models.OTPFlowForgotPassword,
		OTPSent:      true,
		OTPExpiresAt: utils.UTCNowAdd(utils.OTPExpiry),
	}, nil
}

// ResetPassword replaces the password after a verified recovery code. The
// new password must differ from the current one.
func (s *LoginFlowImpl) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error) {
	email := strings.ToLower(req.Email)

	user, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("RESET_PASSWORD_FAILED", "Password reset failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "No account with that email", ErrUserNotFound)
	}

	if user.PasswordHash != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.NewPassword)); err == nil {
			return nil, NewBusinessError("PASSWORD_UNCHANGED", "New password must differ from the old one", ErrPasswordUnchanged)
		}
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("RESET_PASSWORD_FAILED", "Password reset failed", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(newHash)); err != nil {
		return nil, NewBusinessError("RESET_PASSWORD_FAILED", "Password reset failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionPasswordResetCompleted, "Password reset completed", true, nil, metadata)

	return &dto.ResetPasswordResponse{
		Message:  "Password updated. Please log in.",
		Redirect: "/user/login",
	}, nil
}

// Logout destroys the caller's session
func (s *LoginFlowImpl) Logout(ctx context.Context, token string, user *models.User, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	if err := s.sessionSvc.Destroy(ctx, token); err != nil {
		return nil, NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionLogout, "Logout", true, nil, metadata)

	return &dto.LogoutResponse{Message: "Logged out"}, nil
}

// checkPassword compares against the stored bcrypt hash. Accounts created
// through Google sign-in have no hash and never match.
func checkPassword(user *models.User, password string) bool {
	if user == nil || user.PasswordHash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) == nil
}
