package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from InvitationStatus
		to   InvitationStatus
		want bool
	}{
		{StatusPending, StatusSent, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusViewed, false},
		{StatusPending, StatusAnswered, false},
		{StatusSent, StatusViewed, true},
		{StatusSent, StatusAnswered, true},
		{StatusSent, StatusFailed, true},
		{StatusSent, StatusExpired, true},
		{StatusViewed, StatusAnswered, true},
		{StatusViewed, StatusExpired, true},
		{StatusViewed, StatusFailed, false},
		{StatusViewed, StatusSent, false},
		{StatusAnswered, StatusExpired, false},
		{StatusExpired, StatusSent, false},
		{StatusFailed, StatusSent, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	all := []InvitationStatus{StatusPending, StatusSent, StatusViewed, StatusAnswered, StatusExpired, StatusFailed}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "terminal %s must not transition to %s", from, to)
		}
	}
}

func TestActiveAndTerminalPartition(t *testing.T) {
	all := []InvitationStatus{StatusPending, StatusSent, StatusViewed, StatusAnswered, StatusExpired, StatusFailed}
	for _, s := range all {
		assert.NotEqual(t, s.Active(), s.Terminal(), "status %s must be exactly one of active or terminal", s)
	}
}

func TestFieldTypeValid(t *testing.T) {
	for _, ft := range []FieldType{FieldShortText, FieldLongText, FieldEmail, FieldYesNo, FieldSelect, FieldDate, FieldFile} {
		assert.True(t, ft.Valid(), "%s", ft)
	}
	assert.False(t, FieldType("checkbox").Valid())
	assert.False(t, FieldType("").Valid())
}
