package cache

import "time"

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
	PoolSize   int
}

// RedisOption configures the Redis cache.
type RedisOption func(*RedisConfig)

func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) { c.Host = host }
}

func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) { c.Port = port }
}

func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

func WithRedisDefaultTTL(ttl time.Duration) RedisOption {
	return func(c *RedisConfig) { c.DefaultTTL = ttl }
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:       "localhost",
		Port:       6379,
		Prefix:     "spikewatch",
		DefaultTTL: 5 * time.Minute,
		PoolSize:   10,
	}
}

// MemoryConfig holds settings for the in-process backend.
type MemoryConfig struct {
	MaxEntries      int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// MemoryOption configures the in-process cache.
type MemoryOption func(*MemoryConfig)

func WithMemoryMaxEntries(n int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxEntries = n }
}

func WithMemoryDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.DefaultTTL = ttl }
}

func defaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		MaxEntries:      10000,
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}
