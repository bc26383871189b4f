// Package apperrors defines the sentinel errors shared across the control plane.
// Callers classify failures with errors.Is; wrapping preserves detail for logs.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTenantNotProvisioned indicates a tenant key has no registered store.
	// Distinct from ErrStorage so operators can tell "not yet set up" from "broken".
	ErrTenantNotProvisioned = errors.New("tenant store not provisioned")

	// ErrInvalidStateTransition indicates a collection task lifecycle violation.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrStorage indicates an opaque backing-store failure. Detail is logged,
	// not reported to the caller.
	ErrStorage = errors.New("storage error")

	// ErrUnauthenticated indicates no credential was presented.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCredential indicates a credential was presented but is
	// malformed or expired.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrConflict indicates a uniqueness violation (e.g. duplicate project code).
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates rejected input. Always reported verbatim.
	ErrValidation = errors.New("validation error")
)

// Validationf builds a validation error with a caller-facing message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
