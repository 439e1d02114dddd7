package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository keeps fixed-window request counters in Redis.
type RateLimitRepository struct {
	client redis.Cmdable
	prefix string
}

// NewRateLimitRepository constructs the repository.
func NewRateLimitRepository(client redis.Cmdable, prefix string) *RateLimitRepository {
	return &RateLimitRepository{client: client, prefix: prefix}
}

// Increment bumps the counter for key and returns the new value.
// The expiry is set only when the window opens so later hits do not extend it.
func (r *RateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := r.prefix + key
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rate limit incr %s: %w", key, err)
	}
	return incr.Val(), nil
}
