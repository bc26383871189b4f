package testhelpers

import (
	"testing"
	"time"

	"github.com/hww/data-terminal/pkg/auth"
)

// TestJWT signs a token for the given identity with the given secret,
// valid for one hour. Tests pair it with an auth service built on the same
// secret.
func TestJWT(t *testing.T, secret []byte, subject, company, projectCode string) string {
	t.Helper()

	token, err := auth.SignToken(secret, auth.Identity{
		Subject:     subject,
		Company:     company,
		ProjectCode: projectCode,
	}, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return token
}
