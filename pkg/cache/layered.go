package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache writes through an in-process layer to Redis and serves
// reads from whichever layer answers first. A Redis miss is authoritative;
// the memory layer only shortens the hot path between instances of the
// same process.
type LayeredCache struct {
	memory *MemoryCache
	redis  *RedisCache
}

// NewLayeredCache wraps redisCache with an in-process front layer.
func NewLayeredCache(redisCache *RedisCache, opts ...MemoryOption) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(opts...),
		redis:  redisCache,
	}
}

func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.redis.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	// The memory layer is best-effort once Redis has the value.
	_ = c.memory.Set(ctx, key, value, ttl)
	return nil
}

func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.memory.Get(ctx, key, dest); err == nil {
		return nil
	}

	var raw []byte
	if err := c.redis.Get(ctx, key, &raw); err != nil {
		return err
	}
	_ = c.memory.Set(ctx, key, raw, 0)
	return unmarshalValue(raw, dest)
}

func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	memErr := c.memory.Delete(ctx, key)
	redisErr := c.redis.Delete(ctx, key)
	return errors.Join(memErr, redisErr)
}

func (c *LayeredCache) Exists(ctx context.Context, key string) (bool, error) {
	if ok, _ := c.memory.Exists(ctx, key); ok {
		return true, nil
	}
	return c.redis.Exists(ctx, key)
}

// Close stops the memory sweeper and closes the Redis pool.
func (c *LayeredCache) Close() error {
	return errors.Join(c.memory.Close(), c.redis.Close())
}
