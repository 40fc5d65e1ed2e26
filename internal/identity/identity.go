// Package identity abstracts the external authentication provider.
package identity

import (
	"context"
	"errors"

	"github.com/illegalcall/fittrack/internal/models"
)

var (
	// ErrNotAuthenticated is raised locally, before contacting any provider,
	// when an operation needs an active identity and there is none.
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email address is already in use")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnknownIdentity    = errors.New("identity not found")
)

// Provider is the external authentication service. Email and password
// validity rules belong to the provider.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (models.Credentials, error)
	SignIn(ctx context.Context, email, password string) (models.Credentials, error)
	// Refresh exchanges a refresh token for a fresh access token.
	Refresh(ctx context.Context, refreshToken string) (models.Credentials, error)
	SignOut(ctx context.Context, accessToken string) error
	// UpdatePassword changes the credential of the identity owning accessToken.
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
	DeleteIdentity(ctx context.Context, id string) error
}
