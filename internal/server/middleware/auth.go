// Package middleware provides HTTP middleware for authentication.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const ownerIDKey ContextKey = "ownerID"

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (OwnerIDGetter, error)
}

// TokenValidatorFunc adapts a function to TokenValidator
type TokenValidatorFunc func(tokenString string) (OwnerIDGetter, error)

// ValidateToken implements TokenValidator
func (f TokenValidatorFunc) ValidateToken(tokenString string) (OwnerIDGetter, error) {
	return f(tokenString)
}

// OwnerIDGetter extracts the owner from validated claims
type OwnerIDGetter interface {
	GetOwnerID() uuid.UUID
}

// AuthMiddleware validates the bearer token and stores the owner ID in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				log.Printf("[auth] rejected token for %s %s: %v", r.Method, r.URL.Path, err)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), claims.GetOwnerID())))
		})
	}
}

// bearerToken parses "Bearer <token>", matching the scheme case-insensitively
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="session-report"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

// WithOwnerID returns a context carrying the authenticated owner
func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// GetOwnerID extracts the authenticated owner ID from the request context.
func GetOwnerID(r *http.Request) (uuid.UUID, error) {
	ownerID, ok := r.Context().Value(ownerIDKey).(uuid.UUID)
	if !ok || ownerID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("owner ID not found in request context")
	}
	return ownerID, nil
}
