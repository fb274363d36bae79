// Package cache stores serialized result envelopes in Redis so that
// repeated identical queries skip evaluation. Keys combine the entity,
// the raw query string and the caller identity, since visibility can
// differ per caller.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrMiss is returned when no envelope is cached for the key.
var ErrMiss = errors.New("cache miss")

// Cache wraps a Redis client with the envelope key scheme.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a cache. ttl bounds how long a cached envelope may be
// served.
func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Key derives the cache key for one evaluation.
func Key(entity, rawQuery, caller string) string {
	sum := sha256.Sum256([]byte(rawQuery + "\x00" + caller))
	return fmt.Sprintf("sift:%s:%s", entity, hex.EncodeToString(sum[:16]))
}

// Get returns the cached envelope bytes, or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached envelope: %w", err)
	}
	return body, nil
}

// Set stores an envelope. Failures are logged, not propagated, since a
// broken cache must not fail the query.
func (c *Cache) Set(ctx context.Context, key string, body []byte) {
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache envelope",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Invalidate drops every cached envelope of one entity.
func (c *Cache) Invalidate(ctx context.Context, entity string) error {
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("sift:%s:*", entity), 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}
