package sessioncache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when no entry exists for the token.
var ErrCacheMiss = errors.New("sessioncache: miss")

// Entry is the cached view of an active auth session.
type Entry struct {
	SessionID int64     `json:"session_id"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cache keeps active sessions in redis so the auth middleware can check
// revocation without a database round trip.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns redis-backed session cache.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Keys are the SHA-256 of the access token; raw JWTs are never stored.
func (c *Cache) key(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return fmt.Sprintf("auth:session:%s", hex.EncodeToString(sum[:]))
}

// Save caches the session under its access token.
func (c *Cache) Save(ctx context.Context, accessToken string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ttl := c.ttl
	if remaining := time.Until(entry.ExpiresAt); remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	return c.client.Set(ctx, c.key(accessToken), data, ttl).Err()
}

// Get returns the cached session for the access token.
func (c *Cache) Get(ctx context.Context, accessToken string) (*Entry, error) {
	result, err := c.client.Get(ctx, c.key(accessToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal([]byte(result), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Delete evicts the session for the access token.
func (c *Cache) Delete(ctx context.Context, accessToken string) error {
	return c.client.Del(ctx, c.key(accessToken)).Err()
}
