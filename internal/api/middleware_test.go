package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"formgate/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	log := zap.NewNop()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation error", &service.ValidationError{Field: "name", Reason: "empty"}, 400, "validation_failed"},
		{"validation errors", service.ValidationErrors{{Field: "fields[0]", Reason: "bad"}}, 400, "validation_failed"},
		{"duplicate active", service.ErrDuplicateActive, 409, "duplicate_active_invitation"},
		{"not resendable", service.ErrNotResendable, 409, "not_resendable"},
		{"status conflict", service.ErrStatusConflict, 409, "conflict"},
		{"already answered", service.ErrAlreadyAnswered, 409, "already_answered"},
		{"token expired", service.ErrTokenExpired, 410, "token_expired"},
		{"token not found", service.ErrTokenNotFound, 404, "token_not_found"},
		{"template not found", service.ErrTemplateNotFound, 404, "not_found"},
		{"invitation not found", service.ErrInvitationNotFound, 404, "not_found"},
		{"forbidden", service.ErrForbidden, 403, "forbidden"},
		{"unexpected", assert.AnError, 500, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tt.err, log)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestWriteServiceErrorQuotaExceeded(t *testing.T) {
	resetAt := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	rec := httptest.NewRecorder()
	WriteServiceError(rec, &service.QuotaExceededError{Kind: "invitations_sent", Limit: 100, ResetAt: resetAt}, zap.NewNop())

	assert.Equal(t, 429, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "quota_exceeded", body.Code)
	assert.Equal(t, "invitations_sent", body.Details["kind"])
	assert.Equal(t, float64(100), body.Details["limit"])
	assert.Equal(t, "2026-08-30T00:00:00Z", body.Details["resetAt"])
}

func TestWriteServiceErrorMissingAnswers(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, &service.MissingAnswerError{
		FieldIDs: []string{"f_email"},
		Labels:   []string{"Contact email"},
	}, zap.NewNop())

	assert.Equal(t, 422, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing_required_answer", body.Code)
	assert.Equal(t, []interface{}{"f_email"}, body.Details["fieldIds"])
}
