// Package sessions maps opaque authentication tokens to user ids in redis.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "auth_"
	DefaultTTL = 24 * time.Hour
	tokenBytes = 32
)

// Store issues, validates and revokes session tokens.
type Store interface {
	Issue(ctx context.Context, userID int64) (string, error)
	Validate(ctx context.Context, token string) (int64, bool, error)
	Revoke(ctx context.Context, token string) error
}

var newToken = func() (string, error) {
	return common.MakeRandHexString(tokenBytes)
}

// RedisStore keeps token -> user id under keys with a fixed TTL. Expiry is
// enforced by redis and is never extended on use.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(token string) string { return keyPrefix + token }

// Issue generates a random token and stores it for userID.
func (s *RedisStore) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("token generation: %w", err)
	}
	if err := s.client.Set(ctx, key(token), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}
	return token, nil
}

// Validate returns the user id for token. ok is false when the token is
// empty, unknown or expired.
func (s *RedisStore) Validate(ctx context.Context, token string) (int64, bool, error) {
	if token == "" {
		return 0, false, nil
	}
	v, err := s.client.Get(ctx, key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("session store: %w", err)
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// Revoke deletes the token. Revoking an absent token is not an error.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}
