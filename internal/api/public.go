package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"formgate/internal/service"

	"github.com/go-chi/chi/v5"
)

// rateLimit throttles the unauthenticated candidate surface per client
// IP and endpoint class. Refusals carry Retry-After so well-behaved
// clients can back off.
func (d Dependencies) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		endpoint := "forms:resolve"
		if r.Method == http.MethodPost {
			endpoint = "forms:submit"
		}

		decision, err := d.Limiter.Allow(r.Context(), ip, endpoint)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error", d.Log)
			return
		}
		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			WriteErrorDetails(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, slow down.", map[string]interface{}{
				"retryAfterSeconds": retryAfter,
				"limit":             decision.Limit,
			}, d.Log)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	// middleware.RealIP has already rewritten RemoteAddr when the
	// request came through a trusted proxy.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// resolveForm is the candidate opening the link: returns the field
// snapshot for rendering and marks the invitation viewed on first
// resolution.
func (d Dependencies) resolveForm(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	inv, err := d.Invitations.Resolve(r.Context(), tok)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyAnswered) && inv != nil {
			// Idempotent: surface the existing submission instead of a
			// destructive error.
			responseID, rerr := d.Responses.ResponseIDForInvitation(r.Context(), inv.ID)
			if rerr == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "already_answered",
					"message":    "You already submitted this form, no action needed.",
					"responseId": responseID,
				})
				return
			}
		}
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"formId":        inv.FormID,
		"status":        inv.Status,
		"expiresAt":     inv.ExpiresAt,
		"customMessage": inv.CustomMessage,
		"fields":        inv.FieldSnapshot,
	})
}

type submitRequest struct {
	Answers []service.AnswerInput `json:"answers"`
}

func (d Dependencies) submitForm(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	resp, err := d.Responses.Submit(r.Context(), tok, req.Answers)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"responseId":  resp.ID,
		"submittedAt": resp.SubmittedAt,
	})
}
