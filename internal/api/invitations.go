package api

import (
	"encoding/json"
	"net/http"

	"formgate/internal/auth"
	"formgate/internal/model"
	"formgate/internal/service"

	"github.com/go-chi/chi/v5"
)

func (d Dependencies) issueInvitation(w http.ResponseWriter, r *http.Request) {
	var input service.IssueInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	input.OrgID = auth.GetOrgID(r.Context())
	input.RecruiterID = auth.GetRecruiterID(r.Context())

	inv, err := d.Invitations.Issue(r.Context(), input)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(inv)
}

type resendRequest struct {
	CandidateEmail string  `json:"candidateEmail"`
	CustomMessage  *string `json:"customMessage,omitempty"`
}

func (d Dependencies) resendInvitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	inv, err := d.Invitations.Resend(r.Context(), auth.GetOrgID(r.Context()), auth.GetRecruiterID(r.Context()), id, req.CandidateEmail, req.CustomMessage)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(inv)
}

func (d Dependencies) getInvitation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inv, err := d.Invitations.GetInvitation(r.Context(), auth.GetOrgID(r.Context()), id)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inv)
}

func (d Dependencies) listApplicationInvitations(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "id")

	invitations, err := d.Invitations.ListByApplication(r.Context(), auth.GetOrgID(r.Context()), applicationID)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": invitations})
}

func (d Dependencies) getResponse(w http.ResponseWriter, r *http.Request) {
	invitationID := chi.URLParam(r, "id")

	resp, err := d.Responses.GetResponse(r.Context(), auth.GetOrgID(r.Context()), invitationID)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (d Dependencies) peekQuota(w http.ResponseWriter, r *http.Request) {
	recruiterID := auth.GetRecruiterID(r.Context())

	sends, err := d.Quota.Peek(r.Context(), recruiterID, model.QuotaInvitationsSent)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}
	suggestions, err := d.Quota.Peek(r.Context(), recruiterID, model.QuotaAISuggestions)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"invitationsSent": sends,
		"aiSuggestions":   suggestions,
	})
}
