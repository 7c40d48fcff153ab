// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/nextstep/storefront/business_flow"
)

func TestCreateRequestContext(t *testing.T) {
	app := fiber.New()

	var gotCtx context.Context
	var gotCancel context.CancelFunc
	app.Get("/inspect", func(c fiber.Ctx) error {
		gotCtx, gotCancel = createRequestContext(c, "/inspect")
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/inspect", nil)
	req.Header.Set(businessflow.RequestIDKey, "req-12345")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, gotCtx)

	t.Run("request id readable under the audit key", func(t *testing.T) {
		assert.Equal(t, "req-12345", gotCtx.Value(businessflow.RequestIDKey))
	})

	t.Run("carries a deadline", func(t *testing.T) {
		_, ok := gotCtx.Deadline()
		assert.True(t, ok)
	})

	t.Run("cancel releases the context", func(t *testing.T) {
		gotCancel()
		assert.ErrorIs(t, gotCtx.Err(), context.Canceled)
	})
}
