package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter(Config{RequestsPerWindow: 3, Window: time.Minute})
	ctx := context.Background()

	start := time.Date(2026, 8, 29, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return start }

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1", "forms:resolve")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "10.0.0.1", "forms:resolve")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 50*time.Second, d.RetryAfter, "retry after the rest of the window")
}

func TestMemoryLimiterWindowRollover(t *testing.T) {
	l := NewMemoryLimiter(Config{RequestsPerWindow: 1, Window: time.Minute})
	ctx := context.Background()

	start := time.Date(2026, 8, 29, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return start }

	d, err := l.Allow(ctx, "10.0.0.1", "forms:submit")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "10.0.0.1", "forms:submit")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	l.now = func() time.Time { return start.Add(time.Minute) }
	d, err = l.Allow(ctx, "10.0.0.1", "forms:submit")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "a new window resets the counter")
}

func TestMemoryLimiterIsolatesClientsAndEndpoints(t *testing.T) {
	l := NewMemoryLimiter(Config{RequestsPerWindow: 1, Window: time.Minute})
	ctx := context.Background()

	d, err := l.Allow(ctx, "10.0.0.1", "forms:resolve")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "10.0.0.2", "forms:resolve")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other clients have their own window")

	d, err = l.Allow(ctx, "10.0.0.1", "forms:submit")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other endpoints have their own window")

	d, err = l.Allow(ctx, "10.0.0.1", "forms:resolve")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}
