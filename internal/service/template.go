package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"formgate/internal/db"
	"formgate/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
)

// MaxTemplateFields caps the field count per template. Requests over
// the cap are rejected outright, never truncated.
const MaxTemplateFields = 50

type TemplateService struct {
	queries *db.Queries
}

func NewTemplateService(queries *db.Queries) *TemplateService {
	return &TemplateService{queries: queries}
}

type TemplateInput struct {
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	IsPublished bool              `json:"isPublished"`
	Fields      []model.FormField `json:"fields"`
}

// NormalizeFields validates field definitions and returns the cleaned
// copy that gets persisted: ids assigned where missing and order values
// reassigned densely from array position. Client-sent order values are
// ignored so gaps and duplicates cannot enter the store.
func NormalizeFields(fields []model.FormField) ([]model.FormField, error) {
	if len(fields) == 0 {
		return nil, &ValidationError{Field: "fields", Reason: "at least one field is required"}
	}
	if len(fields) > MaxTemplateFields {
		return nil, &ValidationError{Field: "fields", Reason: fmt.Sprintf("field limit exceeded (max %d)", MaxTemplateFields)}
	}

	var errs ValidationErrors
	normalized := make([]model.FormField, len(fields))
	for i, f := range fields {
		name := fmt.Sprintf("fields[%d]", i)
		if !f.Type.Valid() {
			errs = append(errs, &ValidationError{Field: name, Reason: fmt.Sprintf("unknown field type %q", f.Type)})
			continue
		}
		if strings.TrimSpace(f.Label) == "" {
			errs = append(errs, &ValidationError{Field: name, Reason: "label must not be empty"})
			continue
		}
		if f.Type == model.FieldSelect {
			options := make([]string, 0, len(f.Options))
			for _, o := range f.Options {
				if strings.TrimSpace(o) != "" {
					options = append(options, o)
				}
			}
			if len(options) == 0 {
				errs = append(errs, &ValidationError{Field: name, Reason: "select fields require at least one non-empty option"})
				continue
			}
			f.Options = options
		} else if len(f.Options) > 0 {
			errs = append(errs, &ValidationError{Field: name, Reason: fmt.Sprintf("options are not allowed for %s fields", f.Type)})
			continue
		}
		if f.ID == "" {
			f.ID = ulid.Make().String()
		}
		f.Order = i
		normalized[i] = f
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return normalized, nil
}

func validateTemplateInput(input TemplateInput) ([]model.FormField, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "name must not be empty"}
	}
	return NormalizeFields(input.Fields)
}

func (s *TemplateService) CreateTemplate(ctx context.Context, orgID, recruiterID string, input TemplateInput) (*model.FormTemplate, error) {
	fields, err := validateTemplateInput(input)
	if err != nil {
		return nil, err
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}

	t, err := s.queries.CreateTemplate(ctx, db.CreateTemplateParams{
		ID:          ulid.Make().String(),
		OrgID:       orgID,
		Name:        input.Name,
		Description: input.Description,
		IsPublished: input.IsPublished,
		Fields:      fieldsJSON,
		CreatedBy:   recruiterID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return dbTemplateToModel(t)
}

// UpdateTemplate replaces the template definition. Already-issued
// invitations are unaffected; they consult their own snapshot.
func (s *TemplateService) UpdateTemplate(ctx context.Context, orgID, id string, input TemplateInput) (*model.FormTemplate, error) {
	existing, err := s.queries.GetTemplateByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if existing.OrgID != orgID {
		return nil, ErrForbidden
	}

	fields, err := validateTemplateInput(input)
	if err != nil {
		return nil, err
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}

	t, err := s.queries.UpdateTemplate(ctx, id, input.Name, input.Description, input.IsPublished, fieldsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return dbTemplateToModel(t)
}

func (s *TemplateService) GetTemplate(ctx context.Context, orgID, id string) (*model.FormTemplate, error) {
	t, err := s.queries.GetTemplateByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if t.OrgID != orgID {
		return nil, ErrForbidden
	}
	return dbTemplateToModel(t)
}

func (s *TemplateService) ListTemplates(ctx context.Context, orgID string, limit, offset int) ([]*model.FormTemplate, error) {
	rows, err := s.queries.ListTemplates(ctx, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	templates := make([]*model.FormTemplate, 0, len(rows))
	for _, row := range rows {
		t, err := dbTemplateToModel(row)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}
