package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/utils"
)

// RedisSessionStore keeps sessions in Redis with a TTL matching the session
// lifetime, so expired sessions vanish without a sweeper.
type RedisSessionStore struct {
	rc        *redis.Client
	keyPrefix string
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(rc *redis.Client, keyPrefix string) SessionStore {
	return &RedisSessionStore{rc: rc, keyPrefix: keyPrefix}
}

func (s *RedisSessionStore) sessionKey(token string) string {
	return s.keyPrefix + "session:" + token
}

func (s *RedisSessionStore) userKey(userID uint) string {
	return fmt.Sprintf("%suser_sessions:%d", s.keyPrefix, userID)
}

func (s *RedisSessionStore) Create(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = utils.UTCNow()
	}

	bs, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	pipe := s.rc.TxPipeline()
	pipe.Set(ctx, s.sessionKey(session.Token), bs, ttl)
	// index the token under the user so DeleteAllForUser can find it
	pipe.SAdd(ctx, s.userKey(session.UserID), session.Token)
	pipe.Expire(ctx, s.userKey(session.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

func (s *RedisSessionStore) ByToken(ctx context.Context, token string) (*models.Session, error) {
	bs, err := s.rc.Get(ctx, s.sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(bs, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	// the token is excluded from JSON, restore it from the lookup key
	session.Token = token

	if session.IsExpired() {
		_ = s.rc.Del(ctx, s.sessionKey(token)).Err()
		return nil, nil
	}

	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	session, err := s.ByToken(ctx, token)
	if err != nil {
		return err
	}

	pipe := s.rc.TxPipeline()
	pipe.Del(ctx, s.sessionKey(token))
	if session != nil {
		pipe.SRem(ctx, s.userKey(session.UserID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (s *RedisSessionStore) DeleteAllForUser(ctx context.Context, userID uint) error {
	tokens, err := s.rc.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	pipe := s.rc.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, s.sessionKey(token))
	}
	pipe.Del(ctx, s.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	return nil
}
