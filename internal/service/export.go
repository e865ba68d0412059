package service

import (
	"context"
	"fmt"
	"time"

	"formgate/internal/db"
	"formgate/internal/model"
)

type ExportService struct {
	queries *db.Queries
}

func NewExportService(queries *db.Queries) *ExportService {
	return &ExportService{queries: queries}
}

// ExportFilter narrows the streamed result set. All filters are
// optional; OrgID comes from the authenticated caller.
type ExportFilter struct {
	FormID        *string
	ApplicationID *string
	From          *time.Time
	To            *time.Time
}

// ExportRow flattens one response for tabular output. Question/answer
// pairs come from the response's recorded answers, so they reproduce
// the snapshot wording even if the template changed since.
type ExportRow struct {
	ResponseID    string                     `json:"responseId"`
	InvitationID  string                     `json:"invitationId"`
	ApplicationID string                     `json:"applicationId"`
	SubmittedAt   string                     `json:"submittedAt"`
	Answers       []model.FormResponseAnswer `json:"answers"`
}

// Export streams matching responses one row at a time. fn is invoked
// per row; returning an error aborts the export. Nothing is buffered,
// so exports scale to large organizations.
func (s *ExportService) Export(ctx context.Context, orgID string, filter ExportFilter, fn func(ExportRow) error) error {
	dbFilter := db.ExportFilter{
		OrgID:         orgID,
		FormID:        filter.FormID,
		ApplicationID: filter.ApplicationID,
		From:          filter.From,
		To:            filter.To,
	}
	return s.queries.StreamResponses(ctx, dbFilter, func(r db.Response) error {
		resp, err := dbResponseToModel(r)
		if err != nil {
			return fmt.Errorf("failed to decode response %s: %w", r.ID, err)
		}
		return fn(ExportRow{
			ResponseID:    resp.ID,
			InvitationID:  resp.InvitationID,
			ApplicationID: resp.ApplicationID,
			SubmittedAt:   resp.SubmittedAt,
			Answers:       resp.Answers,
		})
	})
}
