package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const recruiterIDKey contextKey = "recruiterID"
const orgIDKey contextKey = "orgID"

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey string
}

// NewJWTConfig creates a new JWT config
func NewJWTConfig(secretKey string) *JWTConfig {
	if secretKey == "" {
		secretKey = "default-secret-key-change-in-production" // Default for development
	}
	return &JWTConfig{SecretKey: secretKey}
}

// Middleware authenticates recruiter requests. Tokens must carry a
// `sub` (recruiter id) and `org_id` claim; every downstream handler
// scopes its reads and writes to that organization.
func (c *JWTConfig) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(c.SecretKey), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "Invalid token claims", http.StatusUnauthorized)
			return
		}

		recruiterID, _ := claims["sub"].(string)
		orgID, _ := claims["org_id"].(string)
		if recruiterID == "" || orgID == "" {
			http.Error(w, "Token missing required claims", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), recruiterIDKey, recruiterID)
		ctx = context.WithValue(ctx, orgIDKey, orgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRecruiterID extracts the recruiter identity from context
func GetRecruiterID(ctx context.Context) string {
	if id, ok := ctx.Value(recruiterIDKey).(string); ok {
		return id
	}
	return ""
}

// GetOrgID extracts the organization scope from context
func GetOrgID(ctx context.Context) string {
	if id, ok := ctx.Value(orgIDKey).(string); ok {
		return id
	}
	return ""
}
