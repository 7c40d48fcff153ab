// Package services provides external service integrations and technical concerns like notifications and sessions
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/utils"
)

// memorySessionStore is a map-backed store for exercising the service
// without a database.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]*models.Session)}
}

func (m *memorySessionStore) Create(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	return nil
}

func (m *memorySessionStore) ByToken(_ context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok || session.IsExpired() {
		delete(m.sessions, token)
		return nil, nil
	}
	return session, nil
}

func (m *memorySessionStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memorySessionStore) DeleteAllForUser(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func TestEstablish(t *testing.T) {
	store := newMemorySessionStore()
	service := NewSessionService(store, time.Hour)
	ctx := context.Background()

	user := &models.User{Role: utils.RoleUser}
	user.ID = 42

	session, err := service.Establish(ctx, user, "203.0.113.10", "test-agent")
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.NotEmpty(t, session.Token)
	assert.Equal(t, uint(42), session.UserID)
	assert.Equal(t, utils.RoleUser, session.Role)
	require.NotNil(t, session.IPAddress)
	assert.Equal(t, "203.0.113.10", *session.IPAddress)
	require.NotNil(t, session.UserAgent)
	assert.Equal(t, "test-agent", *session.UserAgent)
	assert.True(t, session.ExpiresAt.After(session.CreatedAt))

	stored, err := service.Resolve(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, session.Token, stored.Token)
}

func TestEstablishOmitsEmptyClientInfo(t *testing.T) {
	service := NewSessionService(newMemorySessionStore(), time.Hour)

	user := &models.User{Role: utils.RoleUser}
	user.ID = 1

	session, err := service.Establish(context.Background(), user, "", "")
	require.NoError(t, err)
	assert.Nil(t, session.IPAddress)
	assert.Nil(t, session.UserAgent)
}

func TestEstablishTokensAreUnique(t *testing.T) {
	service := NewSessionService(newMemorySessionStore(), time.Hour)
	ctx := context.Background()

	user := &models.User{Role: utils.RoleUser}
	user.ID = 7

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := service.Establish(ctx, user, "", "")
		require.NoError(t, err)
		assert.False(t, seen[session.Token], "duplicate session token")
		seen[session.Token] = true
	}
}

func TestResolve(t *testing.T) {
	store := newMemorySessionStore()
	service := NewSessionService(store, time.Hour)
	ctx := context.Background()

	t.Run("empty token resolves to nothing", func(t *testing.T) {
		session, err := service.Resolve(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("unknown token resolves to nothing", func(t *testing.T) {
		session, err := service.Resolve(ctx, "no-such-token")
		assert.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("expired session resolves to nothing", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, &models.Session{
			Token:     "stale",
			UserID:    1,
			Role:      utils.RoleUser,
			CreatedAt: utils.UTCNowAdd(-2 * time.Hour),
			ExpiresAt: utils.UTCNowAdd(-time.Hour),
		}))

		session, err := service.Resolve(ctx, "stale")
		assert.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestDestroy(t *testing.T) {
	store := newMemorySessionStore()
	service := NewSessionService(store, time.Hour)
	ctx := context.Background()

	user := &models.User{Role: utils.RoleUser}
	user.ID = 9

	session, err := service.Establish(ctx, user, "", "")
	require.NoError(t, err)

	require.NoError(t, service.Destroy(ctx, session.Token))

	resolved, err := service.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	// Destroying an empty token is a no-op
	assert.NoError(t, service.Destroy(ctx, ""))
}

func TestDestroyAllForUser(t *testing.T) {
	store := newMemorySessionStore()
	service := NewSessionService(store, time.Hour)
	ctx := context.Background()

	target := &models.User{Role: utils.RoleUser}
	target.ID = 10
	bystander := &models.User{Role: utils.RoleUser}
	bystander.ID = 11

	first, err := service.Establish(ctx, target, "", "")
	require.NoError(t, err)
	second, err := service.Establish(ctx, target, "", "")
	require.NoError(t, err)
	other, err := service.Establish(ctx, bystander, "", "")
	require.NoError(t, err)

	require.NoError(t, service.DestroyAllForUser(ctx, target.ID))

	for _, token := range []string{first.Token, second.Token} {
		resolved, err := service.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, resolved)
	}

	resolved, err := service.Resolve(ctx, other.Token)
	require.NoError(t, err)
	assert.NotNil(t, resolved)
}

func TestDefaultLifetime(t *testing.T) {
	service := NewSessionService(newMemorySessionStore(), 0)
	ctx := context.Background()

	user := &models.User{Role: utils.RoleUser}
	user.ID = 3

	session, err := service.Establish(ctx, user, "", "")
	require.NoError(t, err)

	lifetime := session.ExpiresAt.Sub(session.CreatedAt)
	assert.Equal(t, utils.SessionTimeout, lifetime)
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	// 32 bytes of unpadded URL-safe base64
	assert.Len(t, token, 43)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	other, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
