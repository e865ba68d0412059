package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"formgate/internal/service"

	"go.uber.org/zap"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, code int, errCode, message string, log *zap.Logger) {
	WriteErrorDetails(w, code, errCode, message, nil, log)
}

// WriteErrorDetails writes an error response with structured detail.
func WriteErrorDetails(w http.ResponseWriter, code int, errCode, message string, details map[string]interface{}, log *zap.Logger) {
	log.Warn("API error", zap.String("code", errCode), zap.String("message", message))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Code:    errCode,
		Message: message,
		Details: details,
	})
}

// WriteServiceError maps the service layer's expected conditions onto
// distinct status codes so clients can render an accurate state.
// Anything unmapped is an infrastructure failure and becomes a 500.
func WriteServiceError(w http.ResponseWriter, err error, log *zap.Logger) {
	var (
		validation  *service.ValidationError
		validations service.ValidationErrors
		missing     *service.MissingAnswerError
		quotaErr    *service.QuotaExceededError
	)

	switch {
	case errors.As(err, &quotaErr):
		w.Header().Set("Retry-After", quotaErr.ResetAt.UTC().Format(http.TimeFormat))
		WriteErrorDetails(w, http.StatusTooManyRequests, "quota_exceeded", err.Error(), map[string]interface{}{
			"kind":    quotaErr.Kind,
			"limit":   quotaErr.Limit,
			"resetAt": quotaErr.ResetAt.Format(time.RFC3339),
		}, log)
	case errors.As(err, &missing):
		WriteErrorDetails(w, http.StatusUnprocessableEntity, "missing_required_answer", err.Error(), map[string]interface{}{
			"fieldIds": missing.FieldIDs,
		}, log)
	case errors.As(err, &validation), errors.As(err, &validations):
		WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), log)
	case errors.Is(err, service.ErrDuplicateActive):
		WriteError(w, http.StatusConflict, "duplicate_active_invitation", err.Error(), log)
	case errors.Is(err, service.ErrNotResendable):
		WriteError(w, http.StatusConflict, "not_resendable", err.Error(), log)
	case errors.Is(err, service.ErrStatusConflict):
		WriteError(w, http.StatusConflict, "conflict", err.Error(), log)
	case errors.Is(err, service.ErrAlreadyAnswered):
		WriteError(w, http.StatusConflict, "already_answered", "You already submitted this form, no action needed.", log)
	case errors.Is(err, service.ErrTokenExpired):
		WriteError(w, http.StatusGone, "token_expired", "This link has expired. Ask the recruiter to resend the form.", log)
	case errors.Is(err, service.ErrTokenNotFound):
		WriteError(w, http.StatusNotFound, "token_not_found", "This form link is not valid.", log)
	case errors.Is(err, service.ErrTemplateNotFound), errors.Is(err, service.ErrInvitationNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error(), log)
	case errors.Is(err, service.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", err.Error(), log)
	default:
		log.Error("Internal error", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", log)
	}
}

// RequestLogger logs HTTP requests and responses
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// WebSocket upgrades need direct access to the ResponseWriter.
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
