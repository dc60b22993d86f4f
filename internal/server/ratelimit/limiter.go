// Package ratelimit throttles credential-guessing traffic with a
// fixed-window Redis counter, keyed per identifier (username, email).
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/indexdothtml/yt-backend/internal/common"
	"github.com/indexdothtml/yt-backend/internal/logging"
)

// Limiter gates an attempt for the given key. Returns
// common.ErrRateLimited when the window budget is spent.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// RedisLimiter counts attempts with INCR and sets the window TTL on the
// first hit. A Redis outage fails open: blocking all logins because the
// counter store is down would be a worse failure mode than briefly losing
// throttling.
type RedisLimiter struct {
	rdb         *redis.Client
	maxAttempts int
	window      time.Duration
	logger      logging.Logger
}

func NewRedisLimiter(rdb *redis.Client, maxAttempts int, window time.Duration, logger logging.Logger) *RedisLimiter {
	return &RedisLimiter{
		rdb:         rdb,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger.With("module", "ratelimit"),
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	count, err := l.rdb.Incr(ctx, "attempt:"+key).Result()
	if err != nil {
		l.logger.Warn(ctx, "rate limit store unavailable, failing open", "error", err)
		return nil
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, "attempt:"+key, l.window).Err(); err != nil {
			l.logger.Warn(ctx, "failed to set rate limit window", "error", err)
		}
	}

	if count > int64(l.maxAttempts) {
		return common.ErrRateLimited
	}

	return nil
}

var _ Limiter = (*RedisLimiter)(nil)
