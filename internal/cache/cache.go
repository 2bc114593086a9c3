package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin read-through layer over redis. A nil *Cache (or one
// built without a redis address) is valid and behaves as a permanent
// miss, so handlers never have to branch on whether caching is
// configured.
type Cache struct {
	client *redis.Client
}

// New connects to redis at addr. An empty addr disables caching.
func New(addr, password string) *Cache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unavailable at %s, caching disabled: %v", addr, err)
		return nil
	}
	return &Cache{client: client}
}

// GetJSON loads key into dest. Returns false on a miss or any error;
// cache failures never surface to callers.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

// SetJSON stores v under key with the given TTL. Errors are logged and
// swallowed.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache invalidate: %v", err)
	}
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
