package sde

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw CSV payloads in Redis so restarts and sibling instances
// avoid re-downloading the full export.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client yields a no-op cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached payload for key. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil || c.client == nil || key == "" {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores the payload with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, data []byte) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
