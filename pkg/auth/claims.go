// Package auth provides JWT-based authentication for the data-terminal
// control plane. The signed token travels in a cookie and carries the
// identity used for tenant routing.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hww/data-terminal/pkg/apperrors"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
)

// Claims is the token payload. Subject is the user (email), Company the
// owning organization and Project the project code used as tenant key.
type Claims struct {
	jwt.RegisteredClaims
	Company string `json:"company,omitempty"`
	Project string `json:"project,omitempty"`
}

// Identity is the resolved authenticated identity handed to services.
type Identity struct {
	Subject     string
	Company     string
	ProjectCode string
}

// SetClaims stores JWT claims in the request context.
func SetClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// IdentityFromContext extracts the authenticated identity from context.
// Fails if the request was not authenticated or the token carried no
// project scope.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return Identity{}, fmt.Errorf("%w: no claims in context", apperrors.ErrUnauthenticated)
	}
	if claims.Project == "" {
		return Identity{}, fmt.Errorf("%w: missing project in token", apperrors.ErrInvalidCredential)
	}
	return Identity{
		Subject:     claims.Subject,
		Company:     claims.Company,
		ProjectCode: claims.Project,
	}, nil
}

// RequireProjectCode extracts the project code from context claims.
func RequireProjectCode(ctx context.Context) (string, error) {
	identity, err := IdentityFromContext(ctx)
	if err != nil {
		return "", err
	}
	return identity.ProjectCode, nil
}
