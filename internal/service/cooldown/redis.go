package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SpikeWatch/internal/domain/models"
)

// Keys expire a day after the trading day ends; long enough to cover
// postmarket, short enough to keep the keyspace flat.
const cooldownTTL = 28 * time.Hour

// RedisStore suppresses duplicate per-day (symbol, stage) alerts across
// process restarts using SetNX.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed cooldown store.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Mark records an emission; true means first emission for the key today.
func (s *RedisStore) Mark(ctx context.Context, symbol string, stage models.Stage, day time.Time) (bool, error) {
	key := cooldownKey(symbol, stage, day)
	ok, err := s.rdb.SetNX(ctx, key, 1, cooldownTTL).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func cooldownKey(symbol string, stage models.Stage, day time.Time) string {
	return fmt.Sprintf("spikewatch:cooldown:%s:%s:%s", day.Format("2006-01-02"), symbol, stage.String())
}
