package preference

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// cacheTTL bounds how long a cached override may be served.
const cacheTTL = 10 * time.Minute

// noOverride marks a cached lookup that found no stored value.
const noOverride = ""

// Cache stores the serialized override of each setting lookup.
// An empty value means there is no override.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (NopCache) Set(context.Context, string, string) error         { return nil }
func (NopCache) Delete(context.Context, string) error              { return nil }

// RedisCache keeps setting lookups in Redis so several bot instances share them.
type RedisCache struct {
	client rueidis.Client
	prefix string
}

// NewRedisCache creates a cache using the given client.
func NewRedisCache(client rueidis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "warden:pref:",
	}
}

// Get returns the cached value for a key.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Do(ctx, c.client.B().Get().Key(c.prefix+key).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read cached setting: %w", err)
	}

	return value, true, nil
}

// Set caches a value for a key.
func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	err := c.client.Do(ctx, c.client.B().Set().Key(c.prefix+key).Value(value).Ex(cacheTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache setting: %w", err)
	}
	return nil
}

// Delete drops the cached value for a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(c.prefix+key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to invalidate cached setting: %w", err)
	}
	return nil
}
