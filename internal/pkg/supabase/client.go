package supabase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/illegalcall/fittrack/internal/identity"
	"github.com/illegalcall/fittrack/internal/models"
)

var _ identity.Provider = (*Provider)(nil)

// extractProjectRef extracts just the project reference ID from a Supabase URL
// From: akrqbuajqkirdekonpzy.supabase.co
// To: akrqbuajqkirdekonpzy
func extractProjectRef(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")

	parts := strings.Split(url, ".")
	return parts[0]
}

// Provider adapts the Supabase GoTrue API to identity.Provider. The client
// is created with the service key so admin operations (identity deletion)
// are allowed.
type Provider struct {
	client     gotrue.Client
	serviceKey string
}

// NewProvider builds a GoTrue client for the project behind supabaseURL.
func NewProvider(supabaseURL, serviceKey string, timeout time.Duration) *Provider {
	projectRef := extractProjectRef(supabaseURL)

	truncatedKey := ""
	if len(serviceKey) > 10 {
		truncatedKey = serviceKey[:10] + "..."
	}
	slog.Info("Initializing Supabase auth client", "project", projectRef, "key", truncatedKey)

	client := gotrue.New(projectRef, serviceKey).WithClient(http.Client{Timeout: timeout})
	return &Provider{client: client, serviceKey: serviceKey}
}

// WithURL points the provider at a custom GoTrue endpoint (self-hosted or test).
func (p *Provider) WithURL(url string) *Provider {
	return &Provider{client: p.client.WithCustomGoTrueURL(url), serviceKey: p.serviceKey}
}

// Ping checks that the auth service is reachable.
func (p *Provider) Ping() error {
	if _, err := p.client.GetSettings(); err != nil {
		return fmt.Errorf("failed to connect to Supabase: %w", err)
	}
	return nil
}

func (p *Provider) SignUp(_ context.Context, email, password string) (models.Credentials, error) {
	res, err := p.client.Signup(types.SignupRequest{Email: email, Password: password})
	if err != nil {
		return models.Credentials{}, providerError("sign up", err)
	}
	return models.Credentials{
		Identity:     models.Identity{ID: res.User.ID.String(), Email: res.User.Email},
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}, nil
}

func (p *Provider) SignIn(_ context.Context, email, password string) (models.Credentials, error) {
	res, err := p.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return models.Credentials{}, providerError("sign in", err)
	}
	return tokenCredentials(res), nil
}

func (p *Provider) Refresh(_ context.Context, refreshToken string) (models.Credentials, error) {
	res, err := p.client.RefreshToken(refreshToken)
	if err != nil {
		return models.Credentials{}, providerError("refresh", err)
	}
	return tokenCredentials(res), nil
}

func (p *Provider) SignOut(_ context.Context, accessToken string) error {
	if err := p.client.WithToken(accessToken).Logout(); err != nil {
		return providerError("sign out", err)
	}
	return nil
}

func (p *Provider) UpdatePassword(_ context.Context, accessToken, newPassword string) error {
	_, err := p.client.WithToken(accessToken).UpdateUser(types.UpdateUserRequest{Password: &newPassword})
	if err != nil {
		return providerError("update password", err)
	}
	return nil
}

func (p *Provider) DeleteIdentity(_ context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %s", identity.ErrUnknownIdentity, id)
	}
	if err := p.client.WithToken(p.serviceKey).AdminDeleteUser(types.AdminDeleteUserRequest{UserID: userID}); err != nil {
		return providerError("delete user", err)
	}
	return nil
}

func tokenCredentials(res *types.TokenResponse) models.Credentials {
	return models.Credentials{
		Identity:     models.Identity{ID: res.User.ID.String(), Email: res.User.Email},
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
}
