package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryLimiter is the in-process fallback for deployments without
// Redis. Windows are stored in an expiring LRU; the mutex keeps the
// count-and-check step atomic.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows *expirable.LRU[string, int64]
	cfg     Config
	now     func() time.Time
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		windows: expirable.NewLRU[string, int64](8192, nil, 2*cfg.Window),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, clientIP, endpoint string) (Decision, error) {
	now := l.now()
	windowStart := now.Truncate(l.cfg.Window)
	key := windowKey(endpoint, clientIP, windowStart.Unix())

	l.mu.Lock()
	count, _ := l.windows.Get(key)
	count++
	l.windows.Add(key, count)
	l.mu.Unlock()

	return decide(count, l.cfg, now.Sub(windowStart)), nil
}
