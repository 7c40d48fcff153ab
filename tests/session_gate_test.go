package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstep/storefront/app/middleware"
	"github.com/nextstep/storefront/app/services"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/repository"
	testingutil "github.com/nextstep/storefront/testing"
	"github.com/nextstep/storefront/utils"
)

const gateCookieName = "nextstep_session"

// gateResponse mirrors the dto.APIResponse envelope for body assertions
type gateResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newSessionGate(testDB *testingutil.TestDB) (*middleware.SessionGate, repository.SessionStore) {
	store := repository.NewDBSessionStore(testDB.DB)
	sessionSvc := services.NewSessionService(store, utils.SessionTimeout)
	userRepo := repository.NewUserRepository(testDB.DB)
	return middleware.NewSessionGate(sessionSvc, userRepo, gateCookieName), store
}

// newGateApp mounts the gate the way the router does, with leaf handlers
// that surface what the gate stored in locals.
func newGateApp(gate *middleware.SessionGate) *fiber.App {
	app := fiber.New()

	app.Get("/account", gate.RequireUser(), func(c fiber.Ctx) error {
		user := c.Locals(middleware.LocalsCurrentUser).(*models.User)
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"email": user.Email}})
	})

	app.Get("/panel", gate.RequireUser(), gate.AdminOnly(), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Post("/login", gate.RedirectIfAuthenticated(), func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/landing", gate.LoadUser(), func(c fiber.Ctx) error {
		email := ""
		if user, ok := c.Locals(middleware.LocalsCurrentUser).(*models.User); ok {
			email = user.Email
		}
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"email": email}})
	})

	return app
}

func gateRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: gateCookieName, Value: token})
	}
	return req
}

func decodeGateResponse(t *testing.T, resp *http.Response) gateResponse {
	t.Helper()
	defer resp.Body.Close()

	var body gateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSessionGateRequireUser(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		gate, store := newSessionGate(testDB)
		app := newGateApp(gate)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := context.Background()

		t.Run("MissingCookieRejected", func(t *testing.T) {
			resp, err := app.Test(gateRequest("GET", "/account", ""))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, "UNAUTHENTICATED", body.Error.Code)
			assert.Equal(t, "/user/login", body.Error.Details["redirect"])
		})

		t.Run("UnknownTokenRejected", func(t *testing.T) {
			resp, err := app.Test(gateRequest("GET", "/account", "no-such-token"))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})

		t.Run("ExpiredSessionRejected", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			require.NoError(t, store.Create(ctx, &models.Session{
				Token:     "gate-expired",
				UserID:    user.ID,
				Role:      user.Role,
				CreatedAt: utils.UTCNowAdd(-48 * time.Hour),
				ExpiresAt: utils.UTCNowAdd(-24 * time.Hour),
			}))

			resp, err := app.Test(gateRequest("GET", "/account", "gate-expired"))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})

		t.Run("LiveSessionAdmitted", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(user)
			require.NoError(t, err)

			resp, err := app.Test(gateRequest("GET", "/account", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, user.Email, body.Data["email"])
		})

		t.Run("BlockedAccountEvicted", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(user)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.User{}).
				Where("id = ?", user.ID).Update("is_blocked", true).Error)

			resp, err := app.Test(gateRequest("GET", "/account", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, "ACCOUNT_BLOCKED", body.Error.Code)

			stored, err := store.ByToken(ctx, session.Token)
			require.NoError(t, err)
			assert.Nil(t, stored, "blocked account's session must be destroyed")
		})

		t.Run("InactiveAccountEvicted", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(user)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(&models.User{}).
				Where("id = ?", user.ID).Update("is_active", false).Error)

			resp, err := app.Test(gateRequest("GET", "/account", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, "ACCOUNT_INACTIVE", body.Error.Code)

			stored, err := store.ByToken(ctx, session.Token)
			require.NoError(t, err)
			assert.Nil(t, stored, "inactive account's session must be destroyed")
		})

		t.Run("UnverifiedAccountChallenged", func(t *testing.T) {
			user, err := fixtures.CreateUnverifiedUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(user)
			require.NoError(t, err)

			resp, err := app.Test(gateRequest("GET", "/account", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, "ACCOUNT_NOT_VERIFIED", body.Error.Code)
			assert.Equal(t, models.OTPFlowLogin, body.Error.Details["flow"])
			assert.Equal(t, user.Email, body.Error.Details["email"])

			// The session survives so the user can complete verification
			stored, err := store.ByToken(ctx, session.Token)
			require.NoError(t, err)
			assert.NotNil(t, stored)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSessionGateAdminOnly(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		gate, _ := newSessionGate(testDB)
		app := newGateApp(gate)
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("CustomerDeniedWithoutRedirect", func(t *testing.T) {
			customer, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(customer)
			require.NoError(t, err)

			resp, err := app.Test(gateRequest("GET", "/panel", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, "ACCESS_DENIED", body.Error.Code)
			assert.Nil(t, body.Error.Details)
		})

		t.Run("AdminAdmitted", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(admin)
			require.NoError(t, err)

			resp, err := app.Test(gateRequest("GET", "/panel", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSessionGateRedirectIfAuthenticated(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		gate, _ := newSessionGate(testDB)
		app := newGateApp(gate)
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("AnonymousPassesThrough", func(t *testing.T) {
			resp, err := app.Test(gateRequest("POST", "/login", ""))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		})

		t.Run("LoggedInCustomerBouncedHome", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(user)
			require.NoError(t, err)

			resp, err := app.Test(gateRequest("POST", "/login", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, "/", body.Data["redirect"])
		})

		t.Run("LoggedInAdminBouncedToDashboard", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(admin)
			require.NoError(t, err)

			resp, err := app.Test(gateRequest("POST", "/login", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, "/admin/dashboard", body.Data["redirect"])
		})

		t.Run("UnverifiedAccountPassesThrough", func(t *testing.T) {
			user, err := fixtures.CreateUnverifiedUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(user)
			require.NoError(t, err)

			resp, err := app.Test(gateRequest("POST", "/login", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSessionGateLoadUser(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		gate, _ := newSessionGate(testDB)
		app := newGateApp(gate)
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("AnonymousServedWithoutUser", func(t *testing.T) {
			resp, err := app.Test(gateRequest("GET", "/landing", ""))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, "", body.Data["email"])
		})

		t.Run("SessionUserAttached", func(t *testing.T) {
			user, err := fixtures.CreateTestUser()
			require.NoError(t, err)
			session, err := fixtures.CreateTestSession(user)
			require.NoError(t, err)

			resp, err := app.Test(gateRequest("GET", "/landing", session.Token))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)

			body := decodeGateResponse(t, resp)
			assert.Equal(t, user.Email, body.Data["email"])
		})

		return nil
	})
	require.NoError(t, err)
}
