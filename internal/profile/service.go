// Package profile manages the caller's own profile document and account.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/events"
	"github.com/illegalcall/fittrack/internal/identity"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

type Service struct {
	profiles storage.ProfileStore
	provider identity.Provider
	events   events.Publisher
}

func NewService(profiles storage.ProfileStore, provider identity.Provider, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Service{profiles: profiles, provider: provider, events: pub}
}

// Load returns the caller's profile, or nil when there is no caller or no
// document yet.
func (s *Service) Load(ctx context.Context, caller *auth.Session) (*models.Profile, error) {
	if caller == nil {
		return nil, nil
	}
	p, err := s.profiles.Get(ctx, caller.Identity.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Save merges delta into the caller's profile. Absent fields keep their value.
func (s *Service) Save(ctx context.Context, caller *auth.Session, delta models.ProfileDelta) error {
	if caller == nil {
		return identity.ErrNotAuthenticated
	}
	return s.profiles.Merge(ctx, caller.Identity.ID, delta)
}

// ChangePassword re-authenticates with the current password, then sets the
// new one. Re-authentication errors are returned unchanged.
func (s *Service) ChangePassword(ctx context.Context, caller *auth.Session, currentPassword, newPassword string) error {
	if caller == nil {
		return identity.ErrNotAuthenticated
	}
	creds, err := s.provider.SignIn(ctx, caller.Identity.Email, currentPassword)
	if err != nil {
		return err
	}
	defer s.release(ctx, creds)
	return s.provider.UpdatePassword(ctx, creds.AccessToken, newPassword)
}

// release signs out the short-lived session opened for re-authentication.
func (s *Service) release(ctx context.Context, creds models.Credentials) {
	if err := s.provider.SignOut(ctx, creds.AccessToken); err != nil {
		slog.Debug("Could not end re-authentication session", "user_id", creds.Identity.ID, "error", err)
	}
}

// DeleteAccount removes the caller's profile and then the identity. When a
// current password is given the caller re-authenticates first. If the
// identity cannot be deleted the profile is restored from its snapshot and
// the identity error is returned.
func (s *Service) DeleteAccount(ctx context.Context, caller *auth.Session, currentPassword string) error {
	if caller == nil {
		return identity.ErrNotAuthenticated
	}
	id := caller.Identity.ID
	if currentPassword != "" {
		creds, err := s.provider.SignIn(ctx, caller.Identity.Email, currentPassword)
		if err != nil {
			return err
		}
		defer s.release(ctx, creds)
	}

	snapshot, err := s.profiles.Get(ctx, id)
	hasSnapshot := err == nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	if err := s.profiles.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if err := s.provider.DeleteIdentity(ctx, id); err != nil {
		if hasSnapshot {
			if rerr := s.profiles.Put(ctx, snapshot); rerr != nil {
				slog.Error("Failed to restore profile after identity deletion failed",
					"user_id", id, "error", rerr)
			} else {
				slog.Warn("Restored profile after identity deletion failed", "user_id", id)
			}
		}
		return err
	}

	s.events.Publish(models.Event{Type: models.EventAccountDeleted, ActorID: id, TargetID: id, SessionID: caller.ID})
	slog.Info("Account deleted", "user_id", id)
	return nil
}
