package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) *ProductionConfig {
	t.Helper()

	// satisfy the required fields so validation passes
	t.Setenv("DB_PASSWORD", "test-password")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)
	return cfg
}

func TestSessionCookieSecureFollowsEnvironment(t *testing.T) {
	t.Run("production defaults to secure", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")

		cfg := loadTestConfig(t)
		assert.True(t, cfg.IsProduction())
		assert.True(t, cfg.Security.SessionCookieSecure)
	})

	t.Run("development defaults to insecure", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")

		cfg := loadTestConfig(t)
		assert.False(t, cfg.IsProduction())
		assert.False(t, cfg.Security.SessionCookieSecure)
	})

	t.Run("explicit setting wins over environment", func(t *testing.T) {
		t.Setenv("APP_ENV", "development")
		t.Setenv("SESSION_COOKIE_SECURE", "true")

		cfg := loadTestConfig(t)
		assert.True(t, cfg.Security.SessionCookieSecure)
	})
}

func TestValidateProductionConfig(t *testing.T) {
	t.Run("missing database password rejected", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "")

		_, err := LoadProductionConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_PASSWORD is required")
	})

	t.Run("admin email without password rejected", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "test-password")
		t.Setenv("ADMIN_EMAIL", "admin@nextstep.shop")
		t.Setenv("ADMIN_PASSWORD", "")

		_, err := LoadProductionConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	})
}
