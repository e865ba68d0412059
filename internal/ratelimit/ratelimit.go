package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Decision reports whether a request may proceed and, when refused, how
// long a well-behaved client should wait before retrying.
type Decision struct {
	Allowed    bool
	Remaining  int
	Limit      int
	RetryAfter time.Duration
}

// Limiter throttles unauthenticated traffic per client IP and endpoint
// class. Authenticated recruiter endpoints rely on the quota ledger
// instead.
type Limiter interface {
	Allow(ctx context.Context, clientIP, endpoint string) (Decision, error)
}

// Config holds the fixed-window parameters.
type Config struct {
	RequestsPerWindow int
	Window            time.Duration
}

func windowKey(endpoint, clientIP string, windowStart int64) string {
	return fmt.Sprintf("rl:%s:%s:%d", endpoint, clientIP, windowStart)
}

func decide(count int64, cfg Config, elapsed time.Duration) Decision {
	remaining := cfg.RequestsPerWindow - int(count)
	if remaining < 0 {
		remaining = 0
	}
	d := Decision{
		Allowed:   count <= int64(cfg.RequestsPerWindow),
		Remaining: remaining,
		Limit:     cfg.RequestsPerWindow,
	}
	if !d.Allowed {
		d.RetryAfter = cfg.Window - elapsed
	}
	return d
}
