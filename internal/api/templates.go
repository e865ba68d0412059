package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"formgate/internal/auth"
	"formgate/internal/service"

	"github.com/go-chi/chi/v5"
)

func (d Dependencies) createTemplate(w http.ResponseWriter, r *http.Request) {
	var input service.TemplateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	orgID := auth.GetOrgID(r.Context())
	recruiterID := auth.GetRecruiterID(r.Context())

	tpl, err := d.Templates.CreateTemplate(r.Context(), orgID, recruiterID, input)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tpl)
}

func (d Dependencies) updateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input service.TemplateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	tpl, err := d.Templates.UpdateTemplate(r.Context(), auth.GetOrgID(r.Context()), id, input)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tpl)
}

func (d Dependencies) getTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tpl, err := d.Templates.GetTemplate(r.Context(), auth.GetOrgID(r.Context()), id)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tpl)
}

func (d Dependencies) listTemplates(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	templates, err := d.Templates.ListTemplates(r.Context(), auth.GetOrgID(r.Context()), limit, offset)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"items": templates})
}

func (d Dependencies) suggestFields(w http.ResponseWriter, r *http.Request) {
	var sc service.SuggestionContext
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	if d.Suggest == nil {
		WriteError(w, http.StatusNotImplemented, "suggestions_unavailable", "No suggestion provider configured", d.Log)
		return
	}

	fields, err := d.Suggest.SuggestFields(r.Context(), auth.GetRecruiterID(r.Context()), sc)
	if err != nil {
		WriteServiceError(w, err, d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"fields": fields})
}
