package service

import (
	"context"
	"testing"

	"formgate/internal/model"
	"formgate/internal/quota"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleSuggesterMapsGoals(t *testing.T) {
	fields, err := RuleSuggester{}.Suggest(context.Background(), SuggestionContext{
		Goals: []string{"check availability", "Salary expectations", "remote preference", "collect resume"},
	})
	require.NoError(t, err)

	labels := make([]string, len(fields))
	types := make([]model.FieldType, len(fields))
	for i, f := range fields {
		labels[i] = f.Label
		types[i] = f.Type
	}

	// Baseline contact fields always come first.
	assert.Equal(t, "Full name", labels[0])
	assert.Equal(t, "Contact email", labels[1])

	assert.Contains(t, labels, "Earliest start date")
	assert.Contains(t, labels, "Salary expectation")
	assert.Contains(t, labels, "Preferred work setup")
	assert.Contains(t, labels, "Updated resume")
	assert.Contains(t, types, model.FieldSelect)
	assert.Contains(t, types, model.FieldFile)
}

func TestSuggestFieldsNormalizesOutput(t *testing.T) {
	s := NewSuggestService(RuleSuggester{}, quota.NewMemoryLedger(quota.Limits{AISuggestions: 5}))

	fields, err := s.SuggestFields(context.Background(), "rec-1", SuggestionContext{Goals: []string{"relocation"}})
	require.NoError(t, err)
	require.NotEmpty(t, fields)

	for i, f := range fields {
		assert.NotEmpty(t, f.ID, "normalization assigns ids")
		assert.Equal(t, i, f.Order, "normalization assigns dense order")
	}
}

func TestSuggestFieldsQuotaGate(t *testing.T) {
	s := NewSuggestService(RuleSuggester{}, quota.NewMemoryLedger(quota.Limits{AISuggestions: 2}))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.SuggestFields(ctx, "rec-1", SuggestionContext{Goals: []string{"why"}})
		require.NoError(t, err)
	}

	_, err := s.SuggestFields(ctx, "rec-1", SuggestionContext{Goals: []string{"why"}})
	require.Error(t, err)

	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, string(model.QuotaAISuggestions), quotaErr.Kind)
	assert.Equal(t, 2, quotaErr.Limit)

	// A different recruiter is unaffected.
	_, err = s.SuggestFields(ctx, "rec-2", SuggestionContext{Goals: []string{"why"}})
	assert.NoError(t, err)
}
