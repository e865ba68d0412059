package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"formgate/internal/db"
	"formgate/internal/model"
	"formgate/internal/schema"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type ResponseService struct {
	queries    *db.Queries
	compiler   *schema.Compiler
	invitation *InvitationService
	bus        EventBus
	log        *zap.Logger
}

func NewResponseService(queries *db.Queries, compiler *schema.Compiler, invitationSvc *InvitationService, bus EventBus, log *zap.Logger) *ResponseService {
	return &ResponseService{
		queries:    queries,
		compiler:   compiler,
		invitation: invitationSvc,
		bus:        bus,
		log:        log,
	}
}

// AnswerInput is one submitted answer. Answer and FileURL are mutually
// exclusive; FileURL is only meaningful for file fields and carries the
// URL the storage collaborator returned after upload.
type AnswerInput struct {
	FieldID string  `json:"fieldId"`
	Answer  *string `json:"answer,omitempty"`
	FileURL *string `json:"fileUrl,omitempty"`
}

// Submit validates answers against the invitation's snapshot and
// records the response, transitioning the invitation to ANSWERED in
// the same transaction. Either both happen or neither does.
func (s *ResponseService) Submit(ctx context.Context, tok string, answers []AnswerInput) (*model.FormResponse, error) {
	inv, err := s.invitation.lookupByToken(ctx, tok)
	if err != nil {
		return nil, err
	}

	status := model.InvitationStatus(inv.Status)
	switch status {
	case model.StatusAnswered:
		return nil, ErrAlreadyAnswered
	case model.StatusExpired:
		return nil, ErrTokenExpired
	case model.StatusFailed, model.StatusPending:
		return nil, ErrTokenNotFound
	}

	if time.Now().After(inv.ExpiresAt) {
		if err := s.queries.ExpireInvitation(ctx, inv.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to expire invitation: %w", err)
		}
		return nil, ErrTokenExpired
	}

	var snapshot []model.FormField
	if err := json.Unmarshal(inv.FieldSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode field snapshot: %w", err)
	}

	recorded, err := s.buildAnswers(ctx, snapshot, answers)
	if err != nil {
		return nil, err
	}

	answersJSON, err := json.Marshal(recorded)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	resp, err := s.queries.SubmitResponse(ctx, db.SubmitResponseParams{
		ID:            ulid.Make().String(),
		InvitationID:  inv.ID,
		ApplicationID: inv.ApplicationID,
		Answers:       answersJSON,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status moved under us; report what it became.
			fresh, rerr := s.queries.GetInvitationByID(ctx, inv.ID)
			if rerr == nil && model.InvitationStatus(fresh.Status) == model.StatusAnswered {
				return nil, ErrAlreadyAnswered
			}
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("failed to record response: %w", err)
	}

	if s.bus != nil {
		_ = s.bus.PublishOrg(inv.OrgID, map[string]interface{}{
			"type":          "invitation.answered",
			"invitationId":  inv.ID,
			"applicationId": inv.ApplicationID,
		})
	}

	return dbResponseToModel(resp)
}

// buildAnswers validates submitted answers against the snapshot and
// returns them in snapshot order with the question wording copied in.
func (s *ResponseService) buildAnswers(ctx context.Context, snapshot []model.FormField, answers []AnswerInput) ([]model.FormResponseAnswer, error) {
	byField := make(map[string]AnswerInput, len(answers))
	known := make(map[string]model.FormField, len(snapshot))
	for _, f := range snapshot {
		known[f.ID] = f
	}

	values := make(map[string]string)
	for _, a := range answers {
		f, ok := known[a.FieldID]
		if !ok {
			return nil, &ValidationError{Field: a.FieldID, Reason: "answer references a field not present in this form"}
		}
		if _, dup := byField[a.FieldID]; dup {
			return nil, &ValidationError{Field: a.FieldID, Reason: "duplicate answer for field"}
		}
		if a.Answer != nil && a.FileURL != nil {
			return nil, &ValidationError{Field: a.FieldID, Reason: "answer and fileUrl are mutually exclusive"}
		}
		if a.FileURL != nil && f.Type != model.FieldFile {
			return nil, &ValidationError{Field: a.FieldID, Reason: "fileUrl is only allowed for file fields"}
		}
		if a.Answer != nil && f.Type == model.FieldFile {
			return nil, &ValidationError{Field: a.FieldID, Reason: "file fields take a fileUrl, not a text answer"}
		}
		byField[a.FieldID] = a
		if a.Answer != nil && strings.TrimSpace(*a.Answer) != "" {
			values[a.FieldID] = *a.Answer
		}
	}

	var missing MissingAnswerError
	for _, f := range snapshot {
		if !f.Required {
			continue
		}
		a, ok := byField[f.ID]
		answered := ok && ((a.Answer != nil && strings.TrimSpace(*a.Answer) != "") ||
			(a.FileURL != nil && strings.TrimSpace(*a.FileURL) != ""))
		if !answered {
			missing.FieldIDs = append(missing.FieldIDs, f.ID)
			missing.Labels = append(missing.Labels, f.Label)
		}
	}
	if len(missing.FieldIDs) > 0 {
		return nil, &missing
	}

	if err := s.compiler.ValidateAnswers(ctx, snapshot, values); err != nil {
		return nil, &ValidationError{Field: "answers", Reason: err.Error()}
	}

	recorded := make([]model.FormResponseAnswer, 0, len(byField))
	for _, f := range snapshot {
		a, ok := byField[f.ID]
		if !ok {
			continue // optional field left unanswered
		}
		recorded = append(recorded, model.FormResponseAnswer{
			FieldID:   f.ID,
			Question:  f.Label,
			FieldType: f.Type,
			Answer:    a.Answer,
			FileURL:   a.FileURL,
		})
	}
	return recorded, nil
}

// GetResponse returns the response recorded for an invitation, scoped
// to the caller's org.
func (s *ResponseService) GetResponse(ctx context.Context, orgID, invitationID string) (*model.FormResponse, error) {
	inv, err := s.queries.GetInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	if inv.OrgID != orgID {
		return nil, ErrForbidden
	}
	resp, err := s.queries.GetResponseByInvitationID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load response: %w", err)
	}
	return dbResponseToModel(resp)
}

// ResponseIDForInvitation is used by the public surface to surface the
// existing submission on repeat resolutions.
func (s *ResponseService) ResponseIDForInvitation(ctx context.Context, invitationID string) (string, error) {
	resp, err := s.queries.GetResponseByInvitationID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load response: %w", err)
	}
	return resp.ID, nil
}
