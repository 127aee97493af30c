package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Allow increments the counter under key and starts its window on the first
// hit, so later hits do not extend it. INCR and EXPIRE NX run in one
// transaction, so the counter never outlives its window.
// Returns (allowed, currentCount).
func (r *RedisCache) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := r.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrap(err, "redis quota")
	}
	n := incr.Val()
	return n <= limit, n, nil
}
