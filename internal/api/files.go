package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// signFile validates the upload against the attachment policy and
// returns presigned put/get URLs. The candidate uploads directly to the
// storage backend; only the resulting URL ever reaches the response
// recorder.
func (d Dependencies) signFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	contentType := r.URL.Query().Get("contentType")
	fileSizeStr := r.URL.Query().Get("size")

	if name == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "name parameter required", d.Log)
		return
	}

	var fileSize int64
	if fileSizeStr != "" {
		parsed, err := strconv.ParseInt(fileSizeStr, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid file size parameter", d.Log)
			return
		}
		fileSize = parsed
	}

	if err := d.Policy.ValidateFile(name, contentType, fileSize); err != nil {
		WriteError(w, http.StatusBadRequest, "policy_violation", err.Error(), d.Log)
		return
	}

	putURL, err := d.Storage.PresignPut(r.Context(), name, contentType, 15*time.Minute)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "url_generation_failed", "Failed to generate presigned URL", d.Log)
		return
	}

	getURL, err := d.Storage.PresignGet(r.Context(), name, 24*time.Hour)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "url_generation_failed", "Failed to generate presigned URL", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"putUrl": putURL,
		"getUrl": getURL,
	})
}
