package service

import (
	"fmt"
	"testing"

	"formgate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFieldsAssignsIDsAndDenseOrder(t *testing.T) {
	fields := []model.FormField{
		{Type: model.FieldShortText, Label: "Full name", Order: 7},
		{ID: "keep-me", Type: model.FieldEmail, Label: "Email", Order: 7},
		{Type: model.FieldLongText, Label: "Motivation", Order: 0},
	}

	normalized, err := NormalizeFields(fields)
	require.NoError(t, err)
	require.Len(t, normalized, 3)

	for i, f := range normalized {
		assert.NotEmpty(t, f.ID)
		assert.Equal(t, i, f.Order, "order comes from array position, not client input")
	}
	assert.Equal(t, "keep-me", normalized[1].ID, "existing ids are preserved")
	assert.NotEqual(t, normalized[0].ID, normalized[2].ID)
}

func TestNormalizeFieldsValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields []model.FormField
	}{
		{"empty", nil},
		{"unknown type", []model.FormField{{Type: "checkbox", Label: "Pick"}}},
		{"blank label", []model.FormField{{Type: model.FieldShortText, Label: "   "}}},
		{"select without options", []model.FormField{{Type: model.FieldSelect, Label: "Setup"}}},
		{"select with only blank options", []model.FormField{{Type: model.FieldSelect, Label: "Setup", Options: []string{"", "  "}}}},
		{"options on non-select", []model.FormField{{Type: model.FieldShortText, Label: "Name", Options: []string{"a"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeFields(tt.fields)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeFieldsStripsBlankSelectOptions(t *testing.T) {
	normalized, err := NormalizeFields([]model.FormField{
		{Type: model.FieldSelect, Label: "Setup", Options: []string{"Remote", "", "On-site", "  "}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Remote", "On-site"}, normalized[0].Options)
}

func TestNormalizeFieldsCap(t *testing.T) {
	atCap := make([]model.FormField, MaxTemplateFields)
	for i := range atCap {
		atCap[i] = model.FormField{Type: model.FieldShortText, Label: fmt.Sprintf("Q%d", i)}
	}
	_, err := NormalizeFields(atCap)
	assert.NoError(t, err)

	overCap := append(atCap, model.FormField{Type: model.FieldShortText, Label: "One too many"})
	_, err = NormalizeFields(overCap)
	assert.Error(t, err)
}

func TestNormalizeFieldsCollectsAllErrors(t *testing.T) {
	_, err := NormalizeFields([]model.FormField{
		{Type: "checkbox", Label: "Pick"},
		{Type: model.FieldShortText, Label: ""},
		{Type: model.FieldShortText, Label: "Fine"},
	})
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
}
