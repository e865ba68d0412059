package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Expected, recoverable conditions. The API layer maps each to a
// distinct status code and machine-readable error code; anything else
// is treated as an infrastructure failure.
var (
	ErrTemplateNotFound   = errors.New("template not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrTokenNotFound      = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrAlreadyAnswered    = errors.New("form already submitted")
	ErrDuplicateActive    = errors.New("an active invitation already exists for this application and form")
	ErrStatusConflict     = errors.New("invitation status changed concurrently")
	ErrNotResendable      = errors.New("only failed or expired invitations can be resent")
	ErrForbidden          = errors.New("not authorized for this organization")
)

// ValidationError carries field-level detail for malformed templates,
// fields, or answers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationErrors aggregates per-field failures so a caller can render
// them all at once.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// MissingAnswerError reports required snapshot fields with no answer.
type MissingAnswerError struct {
	FieldIDs []string
	Labels   []string
}

func (e *MissingAnswerError) Error() string {
	return fmt.Sprintf("missing required answer for: %s", strings.Join(e.Labels, ", "))
}

// QuotaExceededError is returned when a daily counter ceiling has been
// reached. Remaining is always zero when the error is returned; Limit
// and ResetAt let the caller render an actionable message.
type QuotaExceededError struct {
	Kind    string
	Limit   int
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily %s quota of %d reached, resets at %s", e.Kind, e.Limit, e.ResetAt.Format(time.RFC3339))
}
