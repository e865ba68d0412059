package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"formgate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerConsumeUpToLimit(t *testing.T) {
	l := NewMemoryLedger(Limits{InvitationsSent: 3, AISuggestions: 1})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "consumption %d should be allowed", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.NotEmpty(t, res.ResetAt)
}

func TestMemoryLedgerKindsAndRecruitersIsolated(t *testing.T) {
	l := NewMemoryLedger(Limits{InvitationsSent: 1, AISuggestions: 1})
	ctx := context.Background()

	res, err := l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Same recruiter, other kind: untouched.
	res, err = l.TryConsume(ctx, "rec-1", model.QuotaAISuggestions)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Other recruiter, same kind: untouched.
	res, err = l.TryConsume(ctx, "rec-2", model.QuotaInvitationsSent)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Exhausted bucket stays exhausted.
	res, err = l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestMemoryLedgerConcurrentConsume(t *testing.T) {
	const limit = 50
	const workers = 200

	l := NewMemoryLedger(Limits{InvitationsSent: limit})
	ctx := context.Background()

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
			if err == nil && res.Allowed {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed, "exactly limit consumptions may succeed")
}

func TestMemoryLedgerNewDayStartsFresh(t *testing.T) {
	l := NewMemoryLedger(Limits{InvitationsSent: 1})
	ctx := context.Background()

	day1 := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day1 }

	res, err := l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, "2026-08-30T00:00:00Z", res.ResetAt)

	res, err = l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	l.now = func() time.Time { return day1.Add(24 * time.Hour) }
	res, err = l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "a new UTC day starts a fresh bucket")
}

func TestMemoryLedgerPeekDoesNotConsume(t *testing.T) {
	l := NewMemoryLedger(Limits{InvitationsSent: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := l.Peek(ctx, "rec-1", model.QuotaInvitationsSent)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	}

	_, err := l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)
	_, err = l.TryConsume(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)

	res, err := l.Peek(ctx, "rec-1", model.QuotaInvitationsSent)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}
