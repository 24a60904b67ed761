package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache tracks the currently valid token per user in Redis, so an
// otherwise stateless JWT can be revoked by logout. One entry per user; a new
// login overwrites the previous one.
type SessionCache struct {
	client *redis.Client
}

func NewSessionCache(addr, password string, db int) (*SessionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &SessionCache{client: client}, nil
}

// SessionKey returns the cache key for a user's token.
func SessionKey(userID string) string {
	return "user:" + userID + ":token"
}

// StoreToken registers token as the user's active session for ttl.
func (c *SessionCache) StoreToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return c.client.Set(ctx, SessionKey(userID), token, ttl).Err()
}

// Token returns the user's active token, or "" if none is registered.
func (c *SessionCache) Token(ctx context.Context, userID string) (string, error) {
	val, err := c.client.Get(ctx, SessionKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// DeleteToken revokes the user's session. Deleting a missing key is not an
// error, so logout is idempotent.
func (c *SessionCache) DeleteToken(ctx context.Context, userID string) error {
	return c.client.Del(ctx, SessionKey(userID)).Err()
}

func (c *SessionCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
