package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueShape(t *testing.T) {
	tok, err := Issue()
	require.NoError(t, err)

	assert.Len(t, tok, Length)
	assert.True(t, WellFormed(tok))
	assert.False(t, strings.ContainsAny(tok, "+/="), "token must be URL-safe without padding")
}

func TestIssueUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := Issue()
		require.NoError(t, err)
		require.False(t, seen[tok], "duplicate token issued")
		seen[tok] = true
	}
}

func TestWellFormed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", false},
		{"too short", "abc", false},
		{"too long", strings.Repeat("a", Length+1), false},
		{"right length valid alphabet", strings.Repeat("a", Length), true},
		{"right length invalid character", strings.Repeat("a", Length-1) + "+", false},
		{"right length with space", strings.Repeat("a", Length-1) + " ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WellFormed(tt.input))
		})
	}
}
