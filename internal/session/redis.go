// Package session keeps serialized carts in Redis, one key per session id.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
)

const keyPrefix = "session:"

// RedisStore implements cart.Store. Every read or write pushes the session's
// expiry out by ttl.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func Key(sessionID string) string {
	return keyPrefix + sessionID + ":cart"
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) ([]byte, error) {
	b, err := s.rdb.GetEx(ctx, Key(sessionID), s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cart.ErrNoSession
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return b, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID string, payload []byte) error {
	if err := s.rdb.Set(ctx, Key(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, Key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}
