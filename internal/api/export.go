package api

import (
	"encoding/json"
	"net/http"
	"time"

	"formgate/internal/auth"
	"formgate/internal/service"

	"go.uber.org/zap"
)

// exportResponses streams matching responses as NDJSON, one flattened
// row per line. Rows are written as they come off the database cursor;
// the full result set is never held in memory.
func (d Dependencies) exportResponses(w http.ResponseWriter, r *http.Request) {
	filter := service.ExportFilter{}
	q := r.URL.Query()
	if v := q.Get("formId"); v != "" {
		filter.FormID = &v
	}
	if v := q.Get("applicationId"); v != "" {
		filter.ApplicationID = &v
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "from must be RFC 3339", d.Log)
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "to must be RFC 3339", d.Log)
			return
		}
		filter.To = &t
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	err := d.Export.Export(r.Context(), auth.GetOrgID(r.Context()), filter, func(row service.ExportRow) error {
		if err := enc.Encode(row); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		// Headers are already out; all we can do is log and cut the stream.
		d.Log.Error("Export stream aborted", zap.Error(err))
	}
}
