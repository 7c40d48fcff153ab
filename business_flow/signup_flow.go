// Package businessflow contains the core business logic and use cases for storefront account workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/google/uuid"
	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/app/services"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	"github.com/nextstep/storefront/utils"
)

// SignupFlow handles account creation and the shared OTP verification step
type SignupFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error)
	VerifyOTP(ctx context.Context, req *dto.OTPVerificationRequest, metadata *ClientMetadata) (*dto.OTPVerificationResponse, *EstablishedSession, error)
	ResendOTP(ctx context.Context, req *dto.OTPResendRequest, metadata *ClientMetadata) (*dto.OTPResendResponse, error)
}

// EstablishedSession carries the opaque token for the cookie layer. Flows
// that do not create a session return nil.
type EstablishedSession struct {
	Token     string
	ExpiresAt int64
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	userRepo        repository.UserRepository
	otpRepo         repository.OTPVerificationRepository
	auditRepo       repository.AuditLogRepository
	sessionSvc      services.SessionService
	notificationSvc services.NotificationService
	db              *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	userRepo repository.UserRepository,
	otpRepo repository.OTPVerificationRepository,
	auditRepo repository.AuditLogRepository,
	sessionSvc services.SessionService,
	notificationSvc services.NotificationService,
	db *gorm.DB,
) SignupFlow {
	return &SignupFlowImpl{
		userRepo:        userRepo,
		otpRepo:         otpRepo,
		auditRepo:       auditRepo,
		sessionSvc:      sessionSvc,
		notificationSvc: notificationSvc,
		db:              db,
	}
}

// Signup creates (or reuses) an unverified account and issues a code
func (s *SignupFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error) {
	email := strings.ToLower(req.Email)

	if err := s.checkAvailability(ctx, email, req.Phone); err != nil {
		return nil, NewBusinessError("SIGNUP_VALIDATION_FAILED", "Signup validation failed", err)
	}

	var user *models.User
	var otpCode string

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		user, err = s.createOrReuseUser(txCtx, req, email)
		if err != nil {
			return err
		}

		otpCode, err = issueCode(txCtx, s.otpRepo, email)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Signup initiation failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionSignupFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	}

	msg := fmt.Sprintf("Signup initiated for user %d", user.ID)
	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionSignupInitiated, msg, true, nil, metadata)

	// Send the code outside the transaction so a mail failure never rolls
	// back the stored code.
	s.dispatchCode(user, email, otpCode, metadata)

	return &dto.SignupResponse{
		Message:      "Signup initiated. A verification code was sent to your email.",
		Email:        maskEmail(email),
		Flow:         models.OTPFlowSignup,
		OTPSent:      true,
		OTPExpiresAt: utils.UTCNowAdd(utils.OTPExpiry),
	}, nil
}

// VerifyOTP validates the submitted code and branches on the flow tag
func (s *SignupFlowImpl) VerifyOTP(ctx context.Context, req *dto.OTPVerificationRequest, metadata *ClientMetadata) (*dto.OTPVerificationResponse, *EstablishedSession, error) {
	email := strings.ToLower(req.Email)

	user, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
	}
	if user == nil {
		return nil, nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	if err := s.consumeCode(ctx, email, req.OTPCode); err != nil {
		errMsg := fmt.Sprintf("OTP verification failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionOTPFailed, errMsg, false, &errMsg, metadata)

		return nil, nil, NewBusinessError("OTP_VERIFICATION_FAILED", "OTP verification failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionOTPVerified, fmt.Sprintf("OTP verified for flow %s", req.Flow), true, nil, metadata)

	switch req.Flow {
	case models.OTPFlowSignup:
		return s.completeSignupVerification(ctx, user, metadata)
	case models.OTPFlowLogin:
		return s.completeLoginVerification(ctx, user, metadata)
	case models.OTPFlowForgotPassword:
		// no account or session mutation, the caller proceeds to reset
		return &dto.OTPVerificationResponse{
			Message:  "Code verified. You can set a new password now.",
			Redirect: "/user/reset-password",
			Verified: false,
		}, nil, nil
	default:
		return nil, nil, NewBusinessError("INVALID_OTP_FLOW", "Invalid verification flow", ErrInvalidOTPFlow)
	}
}

// ResendOTP issues a fresh code for an existing account
func (s *SignupFlowImpl) ResendOTP(ctx context.Context, req *dto.OTPResendRequest, metadata *ClientMetadata) (*dto.OTPResendResponse, error) {
	email := strings.ToLower(req.Email)

	user, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("OTP_RESEND_FAILED", "OTP resend failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}

	if req.Flow == models.OTPFlowSignup && utils.IsTrue(user.IsVerified) {
		return nil, NewBusinessError("ALREADY_VERIFIED", "Account already verified", ErrAlreadyVerified)
	}

	otpCode, err := issueCode(ctx, s.otpRepo, email)
	if err != nil {
		return nil, NewBusinessError("OTP_RESEND_FAILED", "OTP resend failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionOTPGenerated, fmt.Sprintf("OTP reissued for flow %s", req.Flow), true, nil, metadata)

	s.dispatchCode(user, email, otpCode, metadata)

	return &dto.OTPResendResponse{
		Message:      "A new verification code was sent to your email.",
		Email:        maskEmail(email),
		OTPSent:      true,
		OTPExpiresAt: utils.UTCNowAdd(utils.OTPExpiry),
	}, nil
}

// checkAvailability rejects emails or phones already claimed by a verified
// account. Unverified claims are reusable.
func (s *SignupFlowImpl) checkAvailability(ctx context.Context, email, phone string) error {
	existing, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && utils.IsTrue(existing.IsVerified) {
		return ErrEmailAlreadyRegistered
	}

	byPhone, err := s.userRepo.ByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if byPhone != nil && utils.IsTrue(byPhone.IsVerified) && !strings.EqualFold(byPhone.Email, email) {
		return ErrPhoneAlreadyRegistered
	}

	return nil
}

// createOrReuseUser overwrites an unverified row for the email when one
// exists, otherwise inserts. Referral crediting happens here, at signup time.
func (s *SignupFlowImpl) createOrReuseUser(ctx context.Context, req *dto.SignupRequest, email string) (*models.User, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	referrer, err := s.resolveReferrer(ctx, req.ReferralCode)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var user *models.User
	if existing != nil {
		// keep the row identity, replace the mutable fields
		user = existing
		user.FirstName = req.FirstName
		user.LastName = req.LastName
		user.Phone = req.Phone
		user.PasswordHash = utils.ToPtr(string(passwordHash))
	} else {
		referralCode, err := utils.GenerateReferralCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate referral code: %w", err)
		}

		user = &models.User{
			UUID:         uuid.New(),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        email,
			Phone:        req.Phone,
			PasswordHash: utils.ToPtr(string(passwordHash)),
			Role:         utils.RoleUser,
			SignupMethod: utils.SignupMethodEmail,
			ProfileImage: utils.DefaultProfileImage,
			ReferralCode: referralCode,
			IsActive:     utils.ToPtr(true),
			IsBlocked:    utils.ToPtr(false),
			IsVerified:   utils.ToPtr(false),
			CreatedAt:    utils.UTCNow(),
		}
	}

	if referrer != nil && user.ReferredByID == nil {
		user.ReferredByID = &referrer.ID
		user.WalletBalance += utils.SignupReferralBonus
	}

	if existing != nil {
		err = s.userRepo.Update(ctx, user)
	} else {
		err = s.userRepo.Save(ctx, user)
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// resolveReferrer maps a referral code to its owner. Unknown codes are
// ignored rather than rejected.
func (s *SignupFlowImpl) resolveReferrer(ctx context.Context, code *string) (*models.User, error) {
	if code == nil || *code == "" {
		return nil, nil
	}

	referrer, err := s.userRepo.ByReferralCode(ctx, strings.ToUpper(*code))
	if err != nil {
		return nil, err
	}

	return referrer, nil
}

// consumeCode runs the verification state machine for one submission
func (s *SignupFlowImpl) consumeCode(ctx context.Context, email, submitted string) error {
	otp, err := s.otpRepo.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if otp == nil {
		return ErrOTPNotFound
	}

	if otp.IsExpired() {
		// expired codes are burned no matter what was submitted
		if err := s.otpRepo.DeleteByEmail(ctx, email); err != nil {
			return err
		}
		return ErrOTPExpired
	}

	if !otp.Matches(submitted) {
		// the pending code stays valid for further attempts
		return ErrOTPMismatch
	}

	// single use
	return s.otpRepo.DeleteByEmail(ctx, email)
}

// completeSignupVerification marks the account verified and settles the
// referrer's one-shot reward. No session is created on this path.
func (s *SignupFlowImpl) completeSignupVerification(ctx context.Context, user *models.User, metadata *ClientMetadata) (*dto.OTPVerificationResponse, *EstablishedSession, error) {
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.userRepo.MarkVerified(txCtx, user.ID, utils.UTCNow()); err != nil {
			return err
		}

		if user.ReferredByID != nil && !utils.IsTrue(user.IsReferralRewarded) {
			if err := s.userRepo.CreditWallet(txCtx, *user.ReferredByID, utils.ReferralRewardBonus, true); err != nil {
				return err
			}
			user.IsReferralRewarded = utils.ToPtr(true)
			if err := s.userRepo.Update(txCtx, user); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, NewBusinessError("SIGNUP_COMPLETION_FAILED", "Signup completion failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionSignupCompleted, "Signup completed", true, nil, metadata)
	if utils.IsTrue(user.IsReferralRewarded) && user.ReferredByID != nil {
		_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionReferralRewarded, fmt.Sprintf("Referral reward credited to user %d", *user.ReferredByID), true, nil, metadata)
	}

	user.IsVerified = utils.ToPtr(true)

	return &dto.OTPVerificationResponse{
		Message:  "Account verified. Please log in.",
		Redirect: "/user/login",
		Verified: true,
		User:     utils.ToPtr(ToUserDTO(user)),
	}, nil, nil
}

// completeLoginVerification marks the account verified and logs it in
func (s *SignupFlowImpl) completeLoginVerification(ctx context.Context, user *models.User, metadata *ClientMetadata) (*dto.OTPVerificationResponse, *EstablishedSession, error) {
	if err := s.userRepo.MarkVerified(ctx, user.ID, utils.UTCNow()); err != nil {
		return nil, nil, NewBusinessError("LOGIN_VERIFICATION_FAILED", "Login verification failed", err)
	}
	user.IsVerified = utils.ToPtr(true)

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
		return nil, nil, NewBusinessError("LOGIN_VERIFICATION_FAILED", "Login verification failed", err)
	}

	_ = createAuditLog(ctx, s.auditRepo, user, models.AuditActionLoginSuccessful, "Login completed after verification", true, nil, metadata)

	redirect := "/"
	if user.IsAdmin() {
		redirect = "/admin/dashboard"
	}

	return &dto.OTPVerificationResponse{
			Message:  "Account verified. You are now logged in.",
			Redirect: redirect,
			Verified: true,
			User:     utils.ToPtr(ToUserDTO(user)),
		}, &EstablishedSession{
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt.Unix(),
		}, nil
}

// dispatchCode emails the code in the background, logging dispatch failures
func (s *SignupFlowImpl) dispatchCode(user *models.User, email, code string, metadata *ClientMetadata) {
	go func() {
		if err := s.notificationSvc.SendOTPEmail(email, code); err != nil {
			errMsg := fmt.Sprintf("Failed to send OTP email: %v", err)
			_ = createAuditLog(context.Background(), s.auditRepo, user, models.AuditActionOTPDispatchFailed, errMsg, false, &errMsg, metadata)
		}
	}()
}

// issueCode generates and upserts a code so at most one is live per email
func issueCode(ctx context.Context, otpRepo repository.OTPVerificationRepository, email string) (string, error) {
	otpCode, err := GenerateOTP()
	if err != nil {
		return "", err
	}

	otp := &models.OTPVerification{
		Email:     email,
		Code:      otpCode,
		CreatedAt: utils.UTCNow(),
		ExpiresAt: utils.UTCNowAdd(utils.OTPExpiry),
	}

	if err := otpRepo.Upsert(ctx, otp); err != nil {
		return "", err
	}

	return otpCode, nil
}

// createAuditLog writes a best-effort audit entry shared by all flows
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, user *models.User, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var userID *uint
	if user != nil && user.ID != 0 {
		userID = &user.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return auditRepo.Save(ctx, audit)
}
