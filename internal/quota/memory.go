package quota

import (
	"context"
	"sync"
	"time"

	"formgate/internal/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryLedger is the volatile fallback used when no Redis backend is
// configured. Counters live in an expiring LRU keyed by day bucket;
// the mutex makes check-and-increment a single step.
type MemoryLedger struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, int64]
	limits  Limits
	now     func() time.Time
}

func NewMemoryLedger(limits Limits) *MemoryLedger {
	return &MemoryLedger{
		buckets: expirable.NewLRU[string, int64](4096, nil, bucketTTL),
		limits:  limits,
		now:     time.Now,
	}
}

func (l *MemoryLedger) TryConsume(ctx context.Context, recruiterID string, kind model.QuotaKind) (model.QuotaResult, error) {
	now := l.now()
	key := bucketKey(recruiterID, kind, now)
	limit := l.limits.For(kind)

	l.mu.Lock()
	count, _ := l.buckets.Get(key)
	count++
	l.buckets.Add(key, count)
	l.mu.Unlock()

	return result(count, limit, now), nil
}

func (l *MemoryLedger) Peek(ctx context.Context, recruiterID string, kind model.QuotaKind) (model.QuotaResult, error) {
	now := l.now()
	limit := l.limits.For(kind)

	l.mu.Lock()
	count, _ := l.buckets.Get(bucketKey(recruiterID, kind, now))
	l.mu.Unlock()

	r := result(count, limit, now)
	r.Allowed = count < int64(limit)
	return r, nil
}
