package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/apperrors"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{authService: authService, logger: logger}
}

// RequireAuth validates the token cookie and requires a project scope.
// Sets claims in context for downstream handlers.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authService.ValidateRequest(r)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, apperrors.ErrInvalidCredential) {
				status = http.StatusBadRequest
			}
			m.reject(w, status, err.Error())
			return
		}

		if claims.Project == "" {
			m.reject(w, http.StatusBadRequest, "missing project in token")
			return
		}

		next(w, r.WithContext(SetClaims(r.Context(), claims)))
	}
}

// reject writes the {result, message, data} envelope without importing the
// handlers package.
func (m *Middleware) reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"result":  false,
		"message": message,
		"data":    nil,
	})
}
