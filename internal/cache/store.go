package cache

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// Store represents a shared cache interface used across the application.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Purger is implemented by stores that need expired entries swept periodically.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Purgers sweeps several stores in turn, summing removals and merging errors.
type Purgers []Purger

func (p Purgers) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		total int64
		errs  error
	)
	for _, purger := range p {
		if purger == nil {
			continue
		}
		removed, err := purger.PurgeExpired(ctx, now)
		total += removed
		errs = multierr.Append(errs, err)
	}
	return total, errs
}
