// Package ratelimit caps how often a user may place orders, using a fixed
// window counter in redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRateLimited = errors.New("rate limit exceeded")

type RedisLimiter struct {
	Redis  *redis.Client
	Limit  int
	Window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{Redis: client, Limit: limit, Window: window, now: time.Now}
}

func (l *RedisLimiter) key(userID int64) string {
	secs := int64(l.Window.Seconds())
	if secs <= 0 {
		secs = 1
	}
	return fmt.Sprintf("rate_limit:%s:%d", strconv.FormatInt(userID, 10), l.now().Unix()/secs)
}

// Allow counts one request for userID and returns ErrRateLimited once the
// window's budget is spent.
func (l *RedisLimiter) Allow(ctx context.Context, userID int64) error {
	key := l.key(userID)

	// Using pipeline so the counter always gets an expiry
	pipe := l.Redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	if n := incr.Val(); n > int64(l.Limit) {
		return fmt.Errorf("%w: %d requests in %v", ErrRateLimited, n, l.Window)
	}
	return nil
}
