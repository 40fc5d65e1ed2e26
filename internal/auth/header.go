package auth

import (
	"context"
	"log/slog"

	"github.com/illegalcall/fittrack/internal/models"
)

// ProfileLoader loads the caller's own profile; nil means none.
type ProfileLoader interface {
	Load(ctx context.Context, caller *Session) (*models.Profile, error)
}

// AvatarResolver turns a stored avatar URL into one safe to render.
type AvatarResolver interface {
	Resolve(ctx context.Context, url string) string
}

// HeaderView is what the page header shows for the current session.
type HeaderView struct {
	SignedIn  bool
	Label     string
	AvatarURL string
}

// AuthAttr is the value pages put in data-auth for the region that should be
// visible.
func (h HeaderView) AuthAttr() string {
	if h.SignedIn {
		return "signed-in"
	}
	return "signed-out"
}

// Header computes the header for sess. The label is the profile's display
// name, else the email. Avatar problems fall back to the default image and
// are never reported.
func Header(ctx context.Context, sess *Session, profiles ProfileLoader, avatars AvatarResolver, defaultAvatar string) HeaderView {
	if sess == nil {
		return HeaderView{}
	}
	if defaultAvatar == "" {
		defaultAvatar = models.DefaultAvatarURL
	}

	view := HeaderView{SignedIn: true, Label: sess.Identity.Email, AvatarURL: defaultAvatar}
	profile, err := profiles.Load(ctx, sess)
	if err != nil {
		slog.Debug("Header profile load failed", "user_id", sess.Identity.ID, "error", err)
		return view
	}
	if profile == nil {
		return view
	}
	if profile.DisplayName != "" {
		view.Label = profile.DisplayName
	}
	if profile.AvatarURL != "" {
		view.AvatarURL = profile.AvatarURL
	}
	if avatars != nil {
		view.AvatarURL = avatars.Resolve(ctx, view.AvatarURL)
	}
	return view
}
