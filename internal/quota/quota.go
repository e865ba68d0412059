package quota

import (
	"context"
	"fmt"
	"time"

	"formgate/internal/model"
)

// Limits holds the per-recruiter daily ceilings.
type Limits struct {
	InvitationsSent int
	AISuggestions   int
}

func (l Limits) For(kind model.QuotaKind) int {
	switch kind {
	case model.QuotaAISuggestions:
		return l.AISuggestions
	default:
		return l.InvitationsSent
	}
}

// Ledger tracks daily per-recruiter counters. TryConsume must be
// atomic: with a ceiling of N, exactly N concurrent consumptions for
// the same recruiter and day may succeed.
type Ledger interface {
	TryConsume(ctx context.Context, recruiterID string, kind model.QuotaKind) (model.QuotaResult, error)
	Peek(ctx context.Context, recruiterID string, kind model.QuotaKind) (model.QuotaResult, error)
}

// bucketKey keys a counter by recruiter, kind and UTC calendar day. A
// new day starts a fresh key at zero; no explicit reset is needed.
func bucketKey(recruiterID string, kind model.QuotaKind, now time.Time) string {
	return fmt.Sprintf("quota:%s:%s:%s", recruiterID, kind, now.UTC().Format("20060102"))
}

// resetAt is the next UTC midnight, when a fresh bucket begins.
func resetAt(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

func result(count int64, limit int, now time.Time) model.QuotaResult {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return model.QuotaResult{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   resetAt(now).Format(time.RFC3339),
	}
}
