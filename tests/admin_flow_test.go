package tests

import (
	"context"
	"fmt"
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

func newAdminFlow(testDB *testingutil.TestDB) (businessflow.AdminFlow, repository.SessionStore) {
	userRepo := repository.NewUserRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)
	sessionStore := repository.NewDBSessionStore(testDB.DB)
	sessionSvc := services.NewSessionService(sessionStore, utils.SessionTimeout)

	return businessflow.NewAdminFlow(userRepo, auditRepo, sessionSvc), sessionStore
}

func TestAdminLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, sessionStore := newAdminFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("AdminGetsSessionAndDashboardRedirect", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin()
			require.NoError(t, err)

			resp, session, err := flow.AdminLogin(ctx, &dto.AdminLoginRequest{
				Email:    admin.Email,
				Password: testingutil.TestPassword,
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, session)
			assert.Equal(t, "/admin/dashboard", resp.Redirect)

			stored, err := sessionStore.ByToken(ctx, session.Token)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, utils.RoleAdmin, stored.Role)
		})

		t.Run("CustomerAccountRejectedWithGenericError", func(t *testing.T) {
			customer, err := fixtures.CreateTestUser()
			require.NoError(t, err)

			// Correct password but not an admin, same error as a bad password
			_, _, err = flow.AdminLogin(ctx, &dto.AdminLoginRequest{
				Email:    customer.Email,
				Password: testingutil.TestPassword,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("WrongPasswordRejected", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin()
			require.NoError(t, err)

			_, _, err = flow.AdminLogin(ctx, &dto.AdminLoginRequest{
				Email:    admin.Email,
				Password: "WrongPass999!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdminDashboardStats(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newAdminFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		// Admins never show up in customer statistics
		_, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err := fixtures.CreateTestUser()
			require.NoError(t, err)
		}
		blocked, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.User{}).Where("id = ?", blocked.ID).Update("is_blocked", true).Error)
		_, err = fixtures.CreateUnverifiedUser()
		require.NoError(t, err)

		stats, err := flow.DashboardStats(ctx)
		require.NoError(t, err)

		assert.Equal(t, int64(5), stats.TotalCustomers)
		assert.Equal(t, int64(1), stats.BlockedCustomers)
		assert.Equal(t, int64(4), stats.ActiveCustomers)
		assert.Equal(t, int64(4), stats.VerifiedCustomers)
		assert.LessOrEqual(t, len(stats.RecentCustomers), 10)

		return nil
	})
	require.NoError(t, err)
}

func TestAdminListCustomers(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newAdminFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		admin, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.User{}).Where("id = ?", admin.ID).Update("first_name", "Administrator").Error)

		// 12 customers with distinct, sortable names
		for i := 0; i < 12; i++ {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			name := fmt.Sprintf("Customer%02d", i)
			require.NoError(t, testDB.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("first_name", name).Error)
		}
		blocked, err := fixtures.CreateTestUser()
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.User{}).Where("id = ?", blocked.ID).
			Updates(map[string]any{"first_name": "Blocked", "is_blocked": true}).Error)

		t.Run("PageSizeIsTen", func(t *testing.T) {
			resp, err := flow.ListCustomers(ctx, repository.CustomerListQuery{Page: 1})
			require.NoError(t, err)
			assert.Len(t, resp.Customers, 10)
			assert.Equal(t, int64(13), resp.Pagination.TotalResults)
			assert.Equal(t, 2, resp.Pagination.TotalPages)

			second, err := flow.ListCustomers(ctx, repository.CustomerListQuery{Page: 2})
			require.NoError(t, err)
			assert.Len(t, second.Customers, 3)
		})

		t.Run("StatusFilter", func(t *testing.T) {
			resp, err := flow.ListCustomers(ctx, repository.CustomerListQuery{Page: 1, Status: "blocked"})
			require.NoError(t, err)
			require.Len(t, resp.Customers, 1)
			assert.Equal(t, "Blocked", resp.Customers[0].FirstName)

			active, err := flow.ListCustomers(ctx, repository.CustomerListQuery{Page: 1, Status: "active"})
			require.NoError(t, err)
			assert.Equal(t, int64(12), active.Pagination.TotalResults)
		})

		t.Run("NameSort", func(t *testing.T) {
			resp, err := flow.ListCustomers(ctx, repository.CustomerListQuery{Page: 1, Sort: "nameAsc"})
			require.NoError(t, err)
			require.NotEmpty(t, resp.Customers)
			assert.Equal(t, "Blocked", resp.Customers[0].FirstName)

			desc, err := flow.ListCustomers(ctx, repository.CustomerListQuery{Page: 1, Sort: "nameDesc"})
			require.NoError(t, err)
			assert.Equal(t, "Customer11", desc.Customers[0].FirstName)
		})

		t.Run("SearchIsCaseInsensitive", func(t *testing.T) {
			resp, err := flow.ListCustomers(ctx, repository.CustomerListQuery{Page: 1, Search: "customer01"})
			require.NoError(t, err)
			require.Len(t, resp.Customers, 1)
			assert.Equal(t, "Customer01", resp.Customers[0].FirstName)
		})

		t.Run("AdminsNeverListed", func(t *testing.T) {
			resp, err := flow.ListCustomers(ctx, repository.CustomerListQuery{Page: 1, Search: "administrator"})
			require.NoError(t, err)
			assert.Empty(t, resp.Customers)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdminToggleCustomerBlock(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, sessionStore := newAdminFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		admin, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)

		t.Run("BlockingDestroysSessions", func(t *testing.T) {
			customer, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(customer)
			require.NoError(t, err)

			resp, err := flow.ToggleCustomerBlock(ctx, admin, customer.ID, metadata)
			require.NoError(t, err)
			assert.True(t, resp.IsBlocked)

			stored, err := sessionStore.ByToken(ctx, session.Token)
			require.NoError(t, err)
			assert.Nil(t, stored, "blocking must log the customer out everywhere")

			// Toggling again unblocks
			resp, err = flow.ToggleCustomerBlock(ctx, admin, customer.ID, metadata)
			require.NoError(t, err)
			assert.False(t, resp.IsBlocked)
		})

		t.Run("AdminAccountsCannotBeBlocked", func(t *testing.T) {
			otherAdmin, err := fixtures.CreateTestAdmin()
			require.NoError(t, err)

			_, err = flow.ToggleCustomerBlock(ctx, admin, otherAdmin.ID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsCannotBlockAdmin(err))
		})

		t.Run("UnknownCustomerRejected", func(t *testing.T) {
			_, err := flow.ToggleCustomerBlock(ctx, admin, 999999, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
