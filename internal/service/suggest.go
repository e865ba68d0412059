package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"formgate/internal/model"
	"formgate/internal/quota"
)

// SuggestionContext is the prompt context handed to the AI field
// suggestion collaborator.
type SuggestionContext struct {
	JobID *string  `json:"jobId,omitempty"`
	Goals []string `json:"goals"`
}

// Suggester is the AI field-suggestion collaborator. The engine treats
// it as a black box returning candidate field definitions.
type Suggester interface {
	Suggest(ctx context.Context, sc SuggestionContext) ([]model.FormField, error)
}

type SuggestService struct {
	suggester Suggester
	ledger    quota.Ledger
}

func NewSuggestService(suggester Suggester, ledger quota.Ledger) *SuggestService {
	return &SuggestService{suggester: suggester, ledger: ledger}
}

// SuggestFields asks the collaborator for field suggestions, gated by
// the recruiter's daily AI quota. Returned fields are normalized the
// same way manually added fields are; nothing marks them as generated
// once appended to a draft.
func (s *SuggestService) SuggestFields(ctx context.Context, recruiterID string, sc SuggestionContext) ([]model.FormField, error) {
	res, err := s.ledger.TryConsume(ctx, recruiterID, model.QuotaAISuggestions)
	if err != nil {
		return nil, fmt.Errorf("failed to consume quota: %w", err)
	}
	if !res.Allowed {
		resetAt, _ := time.Parse(time.RFC3339, res.ResetAt)
		return nil, &QuotaExceededError{Kind: string(model.QuotaAISuggestions), Limit: res.Limit, ResetAt: resetAt}
	}

	fields, err := s.suggester.Suggest(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("suggestion failed: %w", err)
	}
	return NormalizeFields(fields)
}

// RuleSuggester is a keyword-driven fallback used when no external AI
// collaborator is configured. It maps common screening goals to canned
// field definitions.
type RuleSuggester struct{}

func (RuleSuggester) Suggest(_ context.Context, sc SuggestionContext) ([]model.FormField, error) {
	fields := []model.FormField{
		{Type: model.FieldShortText, Label: "Full name", Required: true},
		{Type: model.FieldEmail, Label: "Contact email", Required: true},
	}
	for _, goal := range sc.Goals {
		switch {
		case containsFold(goal, "availability"), containsFold(goal, "start"):
			fields = append(fields, model.FormField{Type: model.FieldDate, Label: "Earliest start date", Required: true})
		case containsFold(goal, "salary"), containsFold(goal, "compensation"):
			fields = append(fields, model.FormField{Type: model.FieldShortText, Label: "Salary expectation"})
		case containsFold(goal, "relocat"):
			fields = append(fields, model.FormField{Type: model.FieldYesNo, Label: "Willing to relocate", Required: true})
		case containsFold(goal, "remote"):
			fields = append(fields, model.FormField{
				Type:    model.FieldSelect,
				Label:   "Preferred work setup",
				Options: []string{"Remote", "Hybrid", "On-site"},
			})
		case containsFold(goal, "resume"), containsFold(goal, "cv"):
			fields = append(fields, model.FormField{Type: model.FieldFile, Label: "Updated resume", Required: true})
		case containsFold(goal, "motivation"), containsFold(goal, "why"):
			fields = append(fields, model.FormField{Type: model.FieldLongText, Label: "Why are you interested in this role?"})
		}
	}
	return fields, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
