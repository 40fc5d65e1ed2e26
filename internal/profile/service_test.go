package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/identity"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
	"github.com/illegalcall/fittrack/internal/storage/memory"
)

// stickyProvider refuses to delete identities.
type stickyProvider struct {
	identity.Provider
}

func (stickyProvider) DeleteIdentity(context.Context, string) error {
	return errors.New("requires recent login")
}

type capture struct {
	events []models.Event
}

func (c *capture) Publish(ev models.Event) { c.events = append(c.events, ev) }

func setup(t *testing.T) (*Service, *auth.Session, storage.Stores, *identity.MemoryProvider) {
	t.Helper()
	ctx := context.Background()
	stores := memory.New()
	provider := identity.NewMemoryProviderWithCost(bcrypt.MinCost)

	creds, err := provider.SignUp(ctx, "a@b.co", "secret1")
	require.NoError(t, err)
	require.NoError(t, stores.Profiles.Merge(ctx, creds.Identity.ID, models.DefaultProfileDelta("ann", "")))

	caller := &auth.Session{ID: "sid", Identity: creds.Identity, AccessToken: creds.AccessToken}
	return NewService(stores.Profiles, provider, nil), caller, stores, provider
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	svc, caller, _, _ := setup(t)

	p, err := svc.Load(ctx, nil)
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = svc.Load(ctx, &auth.Session{Identity: models.Identity{ID: "ghost"}})
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = svc.Load(ctx, caller)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "ann", p.DisplayName)
}

func TestSaveMerges(t *testing.T) {
	ctx := context.Background()
	svc, caller, _, _ := setup(t)

	assert.ErrorIs(t, svc.Save(ctx, nil, models.ProfileDelta{}), identity.ErrNotAuthenticated)

	weight := 81.5
	require.NoError(t, svc.Save(ctx, caller, models.ProfileDelta{Weight: models.Set(&weight)}))
	require.NoError(t, svc.Save(ctx, caller, models.ProfileDelta{Reps: models.Set(12)}))

	p, err := svc.Load(ctx, caller)
	require.NoError(t, err)
	assert.Equal(t, "ann", p.DisplayName)
	require.NotNil(t, p.Weight)
	assert.Equal(t, 81.5, *p.Weight)
	assert.Equal(t, 12, p.Reps)
	assert.Equal(t, models.DefaultAvatarURL, p.AvatarURL)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, caller, _, provider := setup(t)

	assert.ErrorIs(t, svc.ChangePassword(ctx, nil, "secret1", "secret2"), identity.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.ChangePassword(ctx, caller, "wrong", "secret2"), identity.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, caller, "secret1", "secret2"))
	assert.Equal(t, 1, provider.ActiveTokens(), "re-authentication session should be closed")
	_, err := provider.SignIn(ctx, "a@b.co", "secret2")
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	svc, caller, stores, provider := setup(t)
	pub := &capture{}
	svc.events = pub

	assert.ErrorIs(t, svc.DeleteAccount(ctx, nil, ""), identity.ErrNotAuthenticated)
	assert.ErrorIs(t, svc.DeleteAccount(ctx, caller, "wrong"), identity.ErrInvalidCredentials)

	require.NoError(t, svc.DeleteAccount(ctx, caller, "secret1"))

	_, err := stores.Profiles.Get(ctx, caller.Identity.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = provider.SignIn(ctx, "a@b.co", "secret1")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventAccountDeleted, pub.events[0].Type)
}

func TestDeleteAccountRestoresProfileWhenIdentityStays(t *testing.T) {
	ctx := context.Background()
	_, caller, stores, provider := setup(t)
	svc := NewService(stores.Profiles, stickyProvider{provider}, nil)

	err := svc.DeleteAccount(ctx, caller, "")
	assert.EqualError(t, err, "requires recent login")

	p, err := stores.Profiles.Get(ctx, caller.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", p.DisplayName)
}
