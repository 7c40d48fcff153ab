package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/app/services"
	businessflow "github.com/nextstep/storefront/business_flow"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	testingutil "github.com/nextstep/storefront/testing"
	"github.com/nextstep/storefront/utils"
)

func newSignupFlow(testDB *testingutil.TestDB) (businessflow.SignupFlow, repository.UserRepository, repository.OTPVerificationRepository) {
	userRepo := repository.NewUserRepository(testDB.DB)
	otpRepo := repository.NewOTPVerificationRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	sessionSvc := services.NewSessionService(repository.NewDBSessionStore(testDB.DB), utils.SessionTimeout)
	notificationSvc := services.NewNotificationService(services.NewMockEmailProvider())

	flow := businessflow.NewSignupFlow(userRepo, otpRepo, auditRepo, sessionSvc, notificationSvc, testDB.DB)
	return flow, userRepo, otpRepo
}

func signupRequest(email, phone string) *dto.SignupRequest {
	return &dto.SignupRequest{
		FirstName:       "John",
		LastName:        "Doe",
		Email:           email,
		Phone:           phone,
		Password:        "SecurePass123!",
		ConfirmPassword: "SecurePass123!",
	}
}

func TestSignup(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, userRepo, otpRepo := newSignupFlow(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("CreatesUnverifiedAccountAndIssuesCode", func(t *testing.T) {
			resp, err := flow.Signup(ctx, signupRequest("john.doe@example.com", "9876543210"), metadata)
			require.NoError(t, err)

			assert.True(t, resp.OTPSent)
			assert.Equal(t, models.OTPFlowSignup, resp.Flow)
			assert.NotEqual(t, "john.doe@example.com", resp.Email, "response email must be masked")

			user, err := userRepo.ByEmail(ctx, "john.doe@example.com")
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.False(t, utils.IsTrue(user.IsVerified))
			assert.NotEmpty(t, user.ReferralCode)

			otp, err := otpRepo.ByEmail(ctx, "john.doe@example.com")
			require.NoError(t, err)
			require.NotNil(t, otp)
			assert.Len(t, otp.Code, 6)
		})

		t.Run("AuditTrailCarriesRequestID", func(t *testing.T) {
			reqCtx := context.WithValue(ctx, businessflow.RequestIDKey, "req-abc123")

			_, err := flow.Signup(reqCtx, signupRequest("audited@example.com", "9876543230"), metadata)
			require.NoError(t, err)

			user, err := userRepo.ByEmail(ctx, "audited@example.com")
			require.NoError(t, err)
			require.NotNil(t, user)

			var entry models.AuditLog
			require.NoError(t, testDB.DB.
				Where("user_id = ? AND action = ?", user.ID, models.AuditActionSignupInitiated).
				Last(&entry).Error)
			require.NotNil(t, entry.RequestID)
			assert.Equal(t, "req-abc123", *entry.RequestID)
		})

		t.Run("RejectsVerifiedEmail", func(t *testing.T) {
			fixtures := testingutil.NewTestFixtures(testDB)
			existing, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.Signup(ctx, signupRequest(existing.Email, "9876543219"), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailAlreadyRegistered(err))
		})

		t.Run("ReusesUnverifiedAccountAndReplacesCode", func(t *testing.T) {
			first, err := flow.Signup(ctx, signupRequest("repeat@example.com", "9876543211"), metadata)
			require.NoError(t, err)
			require.True(t, first.OTPSent)

			firstOTP, err := otpRepo.ByEmail(ctx, "repeat@example.com")
			require.NoError(t, err)
			require.NotNil(t, firstOTP)

			req := signupRequest("repeat@example.com", "9876543211")
			req.FirstName = "Johnny"
			_, err = flow.Signup(ctx, req, metadata)
			require.NoError(t, err)

			// Still a single account, now carrying the resubmitted details
			var count int64
			require.NoError(t, testDB.DB.Model(&models.User{}).Where("email = ?", "repeat@example.com").Count(&count).Error)
			assert.Equal(t, int64(1), count)

			user, err := userRepo.ByEmail(ctx, "repeat@example.com")
			require.NoError(t, err)
			assert.Equal(t, "Johnny", user.FirstName)

			// At most one live code per email
			var otpCount int64
			require.NoError(t, testDB.DB.Model(&models.OTPVerification{}).Where("email = ?", "repeat@example.com").Count(&otpCount).Error)
			assert.Equal(t, int64(1), otpCount)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSignupReferral(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, userRepo, otpRepo := newSignupFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		referrer, err := fixtures.CreateTestUser()
		require.NoError(t, err)

		req := signupRequest("referred@example.com", "9876543212")
		req.ReferralCode = &referrer.ReferralCode

		_, err = flow.Signup(ctx, req, metadata)
		require.NoError(t, err)

		t.Run("SignupBonusCreditedImmediately", func(t *testing.T) {
			referred, err := userRepo.ByEmail(ctx, "referred@example.com")
			require.NoError(t, err)
			require.NotNil(t, referred.ReferredByID)
			assert.Equal(t, referrer.ID, *referred.ReferredByID)
			assert.Equal(t, int64(utils.SignupReferralBonus), referred.WalletBalance)

			// The referrer earns nothing until the new account verifies
			fresh, err := userRepo.ByID(ctx, referrer.ID)
			require.NoError(t, err)
			assert.Zero(t, fresh.ReferralEarnings)
		})

		t.Run("ReferrerRewardedOnceOnVerification", func(t *testing.T) {
			// Pin the code so the verify step can present it
			require.NoError(t, otpRepo.Upsert(ctx, &models.OTPVerification{
				Email:     "referred@example.com",
				Code:      "123456",
				CreatedAt: utils.UTCNow(),
				ExpiresAt: utils.UTCNowAdd(utils.OTPExpiry),
			}))

			verifyReq := &dto.OTPVerificationRequest{
				Email:   "referred@example.com",
				OTPCode: "123456",
				Flow:    models.OTPFlowSignup,
			}
			resp, session, err := flow.VerifyOTP(ctx, verifyReq, metadata)
			require.NoError(t, err)
			assert.True(t, resp.Verified)
			assert.Nil(t, session, "signup verification must not log the account in")

			fresh, err := userRepo.ByID(ctx, referrer.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(utils.ReferralRewardBonus), fresh.WalletBalance)
			assert.Equal(t, int64(utils.ReferralRewardBonus), fresh.ReferralEarnings)

			referred, err := userRepo.ByEmail(ctx, "referred@example.com")
			require.NoError(t, err)
			assert.True(t, utils.IsTrue(referred.IsReferralRewarded))

			// A second verification round must not double the reward
			require.NoError(t, otpRepo.Upsert(ctx, &models.OTPVerification{
				Email:     "referred@example.com",
				Code:      "654321",
				CreatedAt: utils.UTCNow(),
				ExpiresAt: utils.UTCNowAdd(utils.OTPExpiry),
			}))
			verifyReq.OTPCode = "654321"
			_, _, err = flow.VerifyOTP(ctx, verifyReq, metadata)
			require.NoError(t, err)

			fresh, err = userRepo.ByID(ctx, referrer.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(utils.ReferralRewardBonus), fresh.ReferralEarnings)
		})

		t.Run("UnknownReferralCodeIgnored", func(t *testing.T) {
			bogus := "ZZZZ9999"
			req := signupRequest("no.referrer@example.com", "9876543213")
			req.ReferralCode = &bogus

			_, err := flow.Signup(ctx, req, metadata)
			require.NoError(t, err)

			user, err := userRepo.ByEmail(ctx, "no.referrer@example.com")
			require.NoError(t, err)
			assert.Nil(t, user.ReferredByID)
			assert.Zero(t, user.WalletBalance)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestVerifyOTP(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, userRepo, otpRepo := newSignupFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("UnknownEmailRejected", func(t *testing.T) {
			_, _, err := flow.VerifyOTP(ctx, &dto.OTPVerificationRequest{
				Email:   "nobody@example.com",
				OTPCode: "123456",
				Flow:    models.OTPFlowSignup,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("MatchingCodeIsSingleUse", func(t *testing.T) {
			user, err := fixtures.CreateUnverifiedUser()
			require.NoError(t, err)
			_, err = fixtures.CreateTestOTP(user.Email, "111222")
			require.NoError(t, err)

			resp, session, err := flow.VerifyOTP(ctx, &dto.OTPVerificationRequest{
				Email:   user.Email,
				OTPCode: "111222",
				Flow:    models.OTPFlowSignup,
			}, metadata)
			require.NoError(t, err)
			assert.True(t, resp.Verified)
			assert.Equal(t, "/user/login", resp.Redirect)
			assert.Nil(t, session, "signup verification must not log the user in")

			fresh, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.True(t, utils.IsTrue(fresh.IsVerified))

			// The consumed code must be gone
			otp, err := otpRepo.ByEmail(ctx, user.Email)
			require.NoError(t, err)
			assert.Nil(t, otp)

			// Replaying it fails
			_, _, err = flow.VerifyOTP(ctx, &dto.OTPVerificationRequest{
				Email:   user.Email,
				OTPCode: "111222",
				Flow:    models.OTPFlowSignup,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsOTPNotFound(err))
		})

		t.Run("MismatchKeepsCodeAlive", func(t *testing.T) {
			user, err := fixtures.CreateUnverifiedUser()
			require.NoError(t, err)
			_, err = fixtures.CreateTestOTP(user.Email, "333444")
			require.NoError(t, err)

			_, _, err = flow.VerifyOTP(ctx, &dto.OTPVerificationRequest{
				Email:   user.Email,
				OTPCode: "999999",
				Flow:    models.OTPFlowSignup,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsOTPMismatch(err))

			// The right code still works afterwards
			resp, _, err := flow.VerifyOTP(ctx, &dto.OTPVerificationRequest{
				Email:   user.Email,
				OTPCode: "333444",
				Flow:    models.OTPFlowSignup,
			}, metadata)
			require.NoError(t, err)
			assert.True(t, resp.Verified)
		})

		t.Run("ExpiredCodeDeleted", func(t *testing.T) {
			user, err := fixtures.CreateUnverifiedUser()
			require.NoError(t, err)
			_, err = fixtures.CreateExpiredOTP(user.Email, "555666")
			require.NoError(t, err)

			_, _, err = flow.VerifyOTP(ctx, &dto.OTPVerificationRequest{
				Email:   user.Email,
				OTPCode: "555666",
				Flow:    models.OTPFlowSignup,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsOTPExpired(err))

			otp, err := otpRepo.ByEmail(ctx, user.Email)
			require.NoError(t, err)
			assert.Nil(t, otp, "expired code must be removed on first presentation")
		})

		t.Run("ForgotPasswordFlowDoesNotMutateAccount", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			_, err = fixtures.CreateTestOTP(user.Email, "777888")
			require.NoError(t, err)

			resp, session, err := flow.VerifyOTP(ctx, &dto.OTPVerificationRequest{
				Email:   user.Email,
				OTPCode: "777888",
				Flow:    models.OTPFlowForgotPassword,
			}, metadata)
			require.NoError(t, err)
			assert.Nil(t, session)
			assert.False(t, resp.Verified)
			assert.Equal(t, "/user/reset-password", resp.Redirect)
		})

		t.Run("UnknownFlowRejected", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			_, err = fixtures.CreateTestOTP(user.Email, "121212")
			require.NoError(t, err)

			_, _, err = flow.VerifyOTP(ctx, &dto.OTPVerificationRequest{
				Email:   user.Email,
				OTPCode: "121212",
				Flow:    "password-hijack",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidOTPFlow(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestResendOTP(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _, otpRepo := newSignupFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("ReplacesLiveCode", func(t *testing.T) {
			user, err := fixtures.CreateUnverifiedUser()
			require.NoError(t, err)
			_, err = fixtures.CreateTestOTP(user.Email, "101010")
			require.NoError(t, err)

			resp, err := flow.ResendOTP(ctx, &dto.OTPResendRequest{
				Email: user.Email,
				Flow:  models.OTPFlowSignup,
			}, metadata)
			require.NoError(t, err)
			assert.True(t, resp.OTPSent)

			otp, err := otpRepo.ByEmail(ctx, user.Email)
			require.NoError(t, err)
			require.NotNil(t, otp)
			assert.NotEqual(t, "101010", otp.Code)

			var count int64
			require.NoError(t, testDB.DB.Model(&models.OTPVerification{}).Where("email = ?", user.Email).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("VerifiedAccountCannotResendSignupCode", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.ResendOTP(ctx, &dto.OTPResendRequest{
				Email: user.Email,
				Flow:  models.OTPFlowSignup,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsAlreadyVerified(err))
		})

		return nil
	})
	require.NoError(t, err)
}
