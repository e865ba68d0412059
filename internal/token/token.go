package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes gives 256 bits of entropy. Invitation links are public and
// long-lived, so the token must be non-enumerable; do not reuse shorter
// public-ID generators here.
const tokenBytes = 32

// Length is the character length of issued tokens.
const Length = 43 // base64url, no padding

// Issue produces a fixed-length, URL-safe, cryptographically random
// token.
func Issue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// WellFormed reports whether s has the shape of an issued token. It is
// a cheap pre-filter before the database lookup, not a validity check.
func WellFormed(s string) bool {
	if len(s) != Length {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil
}
