package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hww/data-terminal/pkg/apperrors"
)

// AuthService validates inbound credentials. Authentication failures are
// terminal for the request; there are no retry semantics here.
type AuthService interface {
	// ValidateRequest reads the token cookie and verifies it.
	// Returns ErrUnauthenticated when no credential is present and
	// ErrInvalidCredential when it is malformed or expired.
	ValidateRequest(r *http.Request) (*Claims, error)
}

// authService verifies HS256-signed tokens from a cookie.
type authService struct {
	cookieName string
	secret     []byte
}

// NewAuthService creates an AuthService verifying tokens signed with secret.
func NewAuthService(cookieName string, secret []byte) AuthService {
	return &authService{cookieName: cookieName, secret: secret}
}

// ValidateRequest extracts and verifies the signed token cookie.
func (s *authService) ValidateRequest(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w: missing token cookie", apperrors.ErrUnauthenticated)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", apperrors.ErrInvalidCredential)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidCredential, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", apperrors.ErrInvalidCredential)
	}

	return claims, nil
}

var _ AuthService = (*authService)(nil)

// SignToken issues an HS256 token for the given identity, expiring after
// ttl. Used by operator tooling and tests; interactive login lives outside
// this module.
func SignToken(secret []byte, identity Identity, ttl time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Company: identity.Company,
		Project: identity.ProjectCode,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
