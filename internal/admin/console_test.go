package admin

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
	"github.com/illegalcall/fittrack/internal/storage/memory"
)

// countingProfiles records how often the full listing is requested.
type countingProfiles struct {
	storage.ProfileStore
	lists atomic.Int32
}

func (c *countingProfiles) List(ctx context.Context) ([]models.Profile, error) {
	c.lists.Add(1)
	return c.ProfileStore.List(ctx)
}

func never(string) bool { return false }

type fixture struct {
	console  *Console
	profiles *countingProfiles
	stores   storage.Stores
	admin    *auth.Session
	member   *auth.Session
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	stores := memory.New()
	profiles := &countingProfiles{ProfileStore: stores.Profiles}

	adminDelta := models.DefaultProfileDelta("Boss", "")
	adminDelta.IsAdmin = models.Set(true)
	require.NoError(t, stores.Profiles.Merge(ctx, "admin-1", adminDelta))
	require.NoError(t, stores.Profiles.Merge(ctx, "user-2", models.DefaultProfileDelta("Runner Ann", "")))

	return fixture{
		console:  NewConsole(profiles, stores.Tips, nil),
		profiles: profiles,
		stores:   stores,
		admin:    &auth.Session{ID: "s1", Identity: models.Identity{ID: "admin-1"}},
		member:   &auth.Session{ID: "s2", Identity: models.Identity{ID: "user-2"}},
	}
}

func TestOpenGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	page := f.console.Open(ctx, nil)
	assert.Equal(t, GateLoginRequired, page.Gate)
	assert.Equal(t, MsgLoginRequired, page.Status)

	page = f.console.Open(ctx, f.member)
	assert.Equal(t, GateDenied, page.Gate)
	assert.Equal(t, MsgAccessDenied, page.Status)

	page = f.console.Open(ctx, &auth.Session{Identity: models.Identity{ID: "no-profile"}})
	assert.Equal(t, GateDenied, page.Gate)

	assert.Zero(t, f.profiles.lists.Load(), "non-admins never trigger the listing")

	page = f.console.Open(ctx, f.admin)
	assert.Equal(t, GateGranted, page.Gate)
	assert.Empty(t, page.Status)
	assert.Len(t, page.State.Users(), 2)
	assert.EqualValues(t, 1, f.profiles.lists.Load())
}

func TestToggleAdminTwiceRestores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := f.console.Open(ctx, f.admin).State

	st, err := f.console.ToggleAdmin(ctx, f.admin, st, "user-2")
	require.NoError(t, err)
	u, _ := st.User("user-2")
	assert.True(t, u.IsAdmin)
	stored, err := f.stores.Profiles.Get(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)
	assert.Equal(t, "Runner Ann", stored.DisplayName)

	st, err = f.console.ToggleAdmin(ctx, f.admin, st, "user-2")
	require.NoError(t, err)
	u, _ = st.User("user-2")
	assert.False(t, u.IsAdmin)
	stored, err = f.stores.Profiles.Get(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, stored.IsAdmin)

	_, err = f.console.ToggleAdmin(ctx, f.admin, st, "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteProfileNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := f.console.Open(ctx, f.admin).State

	same, err := f.console.DeleteProfile(ctx, f.admin, st, "user-2", never)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Len(t, same.Users(), 2)

	var prompt string
	st, err = f.console.DeleteProfile(ctx, f.admin, st, "user-2", func(p string) bool {
		prompt = p
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, PromptDeleteProfile, prompt)
	assert.Len(t, st.Users(), 1)
	_, err = f.stores.Profiles.Get(ctx, "user-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting it again is a no-op.
	st, err = f.console.DeleteProfile(ctx, f.admin, st, "user-2", Always)
	require.NoError(t, err)
	assert.Len(t, st.Users(), 1)
}

func TestAddTip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := f.console.Open(ctx, f.admin).State

	_, err := f.console.AddTip(ctx, f.admin, st, models.NewTipRequest{Title: "Empty", Text: "   "})
	assert.ErrorIs(t, err, ErrTipTextRequired)
	assert.Equal(t, "tip text is required", err.Error())
	stored, err := f.stores.Tips.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, stored)

	st, err = f.console.AddTip(ctx, f.admin, st, models.NewTipRequest{Title: "  ", Text: "Stretch first"})
	require.NoError(t, err)
	require.Len(t, st.Tips(), 1)
	tip := st.Tips()[0]
	assert.Equal(t, "Tip", tip.Title)
	assert.Nil(t, tip.ImageURL)
	require.NotNil(t, tip.CreatedBy)
	assert.Equal(t, "admin-1", *tip.CreatedBy)
	assert.False(t, tip.CreatedAt.IsZero())
}

func TestDeleteTipUpdatesCacheWithoutReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := f.console.Open(ctx, f.admin).State

	st, err := f.console.AddTip(ctx, f.admin, st, models.NewTipRequest{Text: "one"})
	require.NoError(t, err)
	st, err = f.console.AddTip(ctx, f.admin, st, models.NewTipRequest{Text: "two"})
	require.NoError(t, err)
	require.Len(t, st.Tips(), 2)
	victim := st.Tips()[0].ID

	_, err = f.console.DeleteTip(ctx, f.admin, st, victim, nil)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	st, err = f.console.DeleteTip(ctx, f.admin, st, victim, Always)
	require.NoError(t, err)
	require.Len(t, st.Tips(), 1)
	assert.NotEqual(t, victim, st.Tips()[0].ID)

	stored, err := f.stores.Tips.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	st, err = f.console.DeleteTip(ctx, f.admin, st, victim, Always)
	require.NoError(t, err)
	assert.Len(t, st.Tips(), 1)
}

func TestBusyControlIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := f.console.Open(ctx, f.admin).State

	release, err := f.console.Guard().Acquire(controlKey(f.admin, "toggle-admin:user-2"))
	require.NoError(t, err)

	_, err = f.console.ToggleAdmin(ctx, f.admin, st, "user-2")
	assert.ErrorIs(t, err, ErrControlBusy)

	// A different control on the same record is not blocked.
	_, err = f.console.DeleteProfile(ctx, f.admin, st, "user-2", never)
	assert.ErrorIs(t, err, ErrNotConfirmed)

	release()
	_, err = f.console.ToggleAdmin(ctx, f.admin, st, "user-2")
	assert.NoError(t, err)
	assert.False(t, f.console.Guard().Busy(controlKey(f.admin, "toggle-admin:user-2")))
}

func TestControlsArePerSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := f.console.Open(ctx, f.admin).State
	other := &auth.Session{ID: "s3", Identity: models.Identity{ID: "admin-1"}}

	releaseToggle, err := f.console.Guard().Acquire(controlKey(f.admin, "toggle-admin:user-2"))
	require.NoError(t, err)
	defer releaseToggle()
	releaseAdd, err := f.console.Guard().Acquire(controlKey(f.admin, "add-tip"))
	require.NoError(t, err)
	defer releaseAdd()

	st, err = f.console.ToggleAdmin(ctx, other, st, "user-2")
	require.NoError(t, err)
	u, _ := st.User("user-2")
	assert.True(t, u.IsAdmin)

	st, err = f.console.AddTip(ctx, other, st, models.NewTipRequest{Text: "Breathe out on the lift"})
	require.NoError(t, err)
	assert.Len(t, st.Tips(), 1)

	_, err = f.console.AddTip(ctx, f.admin, st, models.NewTipRequest{Text: "blocked"})
	assert.ErrorIs(t, err, ErrControlBusy)
}

func TestStateFilterAndReducers(t *testing.T) {
	users := []models.Profile{
		{ID: "abc-123", DisplayName: "Runner Ann"},
		{ID: "xyz-789", DisplayName: "Lifter Bob"},
	}
	st := NewState(users, nil)

	assert.Len(t, st.WithFilter("").Visible(), 2)
	assert.Len(t, st.WithFilter("  RUNNER ").Visible(), 1)
	assert.Len(t, st.WithFilter("789").Visible(), 1)
	assert.Empty(t, st.WithFilter("carol").Visible())

	toggled := st.WithAdmin("abc-123", true)
	u, _ := toggled.User("abc-123")
	assert.True(t, u.IsAdmin)
	u, _ = st.User("abc-123")
	assert.False(t, u.IsAdmin, "reducers never mutate the previous snapshot")

	assert.Len(t, st.WithoutUser("abc-123").Users(), 1)
	assert.Len(t, st.Users(), 2)
}
