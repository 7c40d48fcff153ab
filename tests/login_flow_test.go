// Package tests contains integration tests for the account workflows
package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/app/services"
	businessflow "github.com/nextstep/storefront/business_flow"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	testingutil "github.com/nextstep/storefront/testing"
	"github.com/nextstep/storefront/utils"
)

func newLoginFlow(testDB *testingutil.TestDB) (businessflow.LoginFlow, repository.SessionStore, repository.OTPVerificationRepository) {
	userRepo := repository.NewUserRepository(testDB.DB)
	otpRepo := repository.NewOTPVerificationRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	sessionStore := repository.NewDBSessionStore(testDB.DB)
	sessionSvc := services.NewSessionService(sessionStore, utils.SessionTimeout)
	notificationSvc := services.NewNotificationService(services.NewMockEmailProvider())

	flow := businessflow.NewLoginFlow(userRepo, otpRepo, auditRepo, sessionSvc, notificationSvc, testDB.DB)
	return flow, sessionStore, otpRepo
}

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, sessionStore, _ := newLoginFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("SuccessEstablishesSession", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			resp, session, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: testingutil.TestPassword,
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, session)
			assert.Equal(t, "/", resp.Redirect)
			assert.False(t, resp.NeedsVerification)

			stored, err := sessionStore.ByToken(ctx, session.Token)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, user.ID, stored.UserID)
		})

		t.Run("WrongPasswordIsGenericFailure", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, _, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "WrongPass999!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))

			// Same failure for an email that does not exist at all
			_, _, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    "ghost@example.com",
				Password: "WrongPass999!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("BlockedAccountRefused", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("is_blocked", true).Error)

			_, _, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: testingutil.TestPassword,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountBlocked(err))
		})

		t.Run("UnverifiedAccountRoutedToOTP", func(t *testing.T) {
			user, err := fixtures.CreateUnverifiedUser()
			require.NoError(t, err)

			resp, session, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: testingutil.TestPassword,
			}, metadata)
			require.NoError(t, err)
			assert.Nil(t, session, "no session before verification")
			assert.True(t, resp.NeedsVerification)
			assert.Equal(t, models.OTPFlowLogin, resp.Flow)

			// A fresh code must be waiting for the account
			var count int64
			require.NoError(t, testDB.DB.Model(&models.OTPVerification{}).Where("email = ?", user.Email).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("AdminRedirectedToDashboard", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin()
			require.NoError(t, err)

			resp, session, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    admin.Email,
				Password: testingutil.TestPassword,
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, session)
			assert.Equal(t, "/admin/dashboard", resp.Redirect)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _, otpRepo := newLoginFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("ForgotPasswordIssuesCode", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			resp, err := flow.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: user.Email}, metadata)
			require.NoError(t, err)
			assert.True(t, resp.OTPSent)
			assert.Equal(t, models.OTPFlowForgotPassword, resp.Flow)

			otp, err := otpRepo.ByEmail(ctx, user.Email)
			require.NoError(t, err)
			require.NotNil(t, otp)
		})

		t.Run("ForgotPasswordUnknownEmail", func(t *testing.T) {
			_, err := flow.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "ghost@example.com"}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("ResetReplacesPassword", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			resp, err := flow.ResetPassword(ctx, &dto.ResetPasswordRequest{
				Email:           user.Email,
				NewPassword:     "BrandNewPass42!",
				ConfirmPassword: "BrandNewPass42!",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "/user/login", resp.Redirect)

			var fresh models.User
			require.NoError(t, testDB.DB.First(&fresh, user.ID).Error)
			require.NotNil(t, fresh.PasswordHash)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*fresh.PasswordHash), []byte("BrandNewPass42!")))

			// Old password no longer works
			_, _, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: testingutil.TestPassword,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("ResetRejectsUnchangedPassword", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			_, err = flow.ResetPassword(ctx, &dto.ResetPasswordRequest{
				Email:           user.Email,
				NewPassword:     testingutil.TestPassword,
				ConfirmPassword: testingutil.TestPassword,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsPasswordUnchanged(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLogout(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, sessionStore, _ := newLoginFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		user, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		session, err := fixtures.CreateTestSession(user)
		require.NoError(t, err)

		_, err = flow.Logout(ctx, session.Token, user, metadata)
		require.NoError(t, err)

		stored, err := sessionStore.ByToken(ctx, session.Token)
		require.NoError(t, err)
		assert.Nil(t, stored)

		return nil
	})
	require.NoError(t, err)
}
