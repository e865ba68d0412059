package quota

import (
	"context"
	"fmt"
	"time"

	"formgate/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisLedger is the durable ledger. INCR is atomic on the server, so
// concurrent consumers for the same bucket serialize there; a count
// that lands above the limit is reported as refused and never rolled
// back (the key expires with its day).
type RedisLedger struct {
	rdb    *redis.Client
	limits Limits
	now    func() time.Time
}

func NewRedisLedger(rdb *redis.Client, limits Limits) *RedisLedger {
	return &RedisLedger{rdb: rdb, limits: limits, now: time.Now}
}

// Buckets outlive their day by a margin so Peek keeps working across
// timezone-skewed clients.
const bucketTTL = 48 * time.Hour

func (l *RedisLedger) TryConsume(ctx context.Context, recruiterID string, kind model.QuotaKind) (model.QuotaResult, error) {
	now := l.now()
	key := bucketKey(recruiterID, kind, now)
	limit := l.limits.For(kind)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return model.QuotaResult{}, fmt.Errorf("failed to increment quota counter: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, bucketTTL).Err(); err != nil {
			return model.QuotaResult{}, fmt.Errorf("failed to set quota counter expiry: %w", err)
		}
	}
	return result(count, limit, now), nil
}

func (l *RedisLedger) Peek(ctx context.Context, recruiterID string, kind model.QuotaKind) (model.QuotaResult, error) {
	now := l.now()
	limit := l.limits.For(kind)

	count, err := l.rdb.Get(ctx, bucketKey(recruiterID, kind, now)).Int64()
	if err != nil && err != redis.Nil {
		return model.QuotaResult{}, fmt.Errorf("failed to read quota counter: %w", err)
	}
	r := result(count, limit, now)
	r.Allowed = count < int64(limit)
	return r, nil
}
