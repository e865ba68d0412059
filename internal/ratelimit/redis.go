package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests in fixed windows keyed by endpoint, IP
// and window start. INCR serializes concurrent requests server-side.
type RedisLimiter struct {
	rdb *redis.Client
	cfg Config
	now func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, cfg: cfg, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, clientIP, endpoint string) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(l.cfg.Window)
	key := windowKey(endpoint, clientIP, windowStart.Unix())

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to increment rate counter: %w", err)
	}
	if count == 1 {
		// Keep the key one extra window so late stragglers still see it.
		if err := l.rdb.Expire(ctx, key, 2*l.cfg.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("failed to set rate counter expiry: %w", err)
		}
	}
	return decide(count, l.cfg, now.Sub(windowStart)), nil
}
