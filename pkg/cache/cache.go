package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when the requested key does not exist.
var ErrCacheMiss = errors.New("cache: key not found")

// Service is the read-through cache used by the HTTP handlers. Values
// round-trip through JSON so the memory and Redis backends behave the
// same way for a given dest type.
type Service interface {
	// Set stores value under key. A zero ttl falls back to the
	// backend's default expiration.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Get loads the value for key into dest. Returns ErrCacheMiss
	// when the key is absent or expired.
	Get(ctx context.Context, key string, dest interface{}) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
