package auth

import (
	"context"
	"strings"

	"github.com/mmynk/splitsync/internal/models"
)

// Authenticator verifies account credentials on the backend.
type Authenticator interface {
	// Register creates an account. The email must not be taken.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account the credential belongs to.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
}

// NormalizeEmail trims and lowercases an address. Accounts are keyed by the
// normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
