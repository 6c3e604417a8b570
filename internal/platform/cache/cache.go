// Package cache provides key/value caching for chain lookups whose
// answers are immutable (pool addresses) or short-lived (gas prices).
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Cache is a string-valued cache with per-entry TTL. A zero TTL means
// the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
