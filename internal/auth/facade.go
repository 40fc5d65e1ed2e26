// Package auth binds identity-provider credentials to login sessions and
// notifies observers when a session signs in or out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/illegalcall/fittrack/internal/identity"
	"github.com/illegalcall/fittrack/internal/metrics"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

// Result is what the user-facing auth flows report. They never return a Go
// error; failures carry the provider's message in Error.
type Result struct {
	Success   bool             `json:"success"`
	Identity  *models.Identity `json:"user,omitempty"`
	Token     string           `json:"token,omitempty"`
	SessionID string           `json:"-"`
	Error     string           `json:"error,omitempty"`
}

func failure(err error) Result {
	return Result{Error: err.Error()}
}

func observe(operation string, res Result) Result {
	outcome := "success"
	if !res.Success {
		outcome = "failure"
	}
	metrics.AuthAttempts.WithLabelValues(operation, outcome).Inc()
	return res
}

// Facade wraps sign-up, sign-in and sign-out against the identity provider.
type Facade struct {
	provider      identity.Provider
	profiles      storage.ProfileStore
	persistence   *Persistence
	tokens        *TokenManager
	hub           *hub
	defaultAvatar string
}

// NewFacade wires the façade. persistence is the process-wide token deciding
// where sessions live; it is shared by every façade built from it.
func NewFacade(provider identity.Provider, profiles storage.ProfileStore, persistence *Persistence, tokens *TokenManager, defaultAvatar string) *Facade {
	if defaultAvatar == "" {
		defaultAvatar = models.DefaultAvatarURL
	}
	return &Facade{
		provider:      provider,
		profiles:      profiles,
		persistence:   persistence,
		tokens:        tokens,
		hub:           newHub(),
		defaultAvatar: defaultAvatar,
	}
}

// Provider exposes the identity provider for operations that re-authenticate.
func (f *Facade) Provider() identity.Provider {
	return f.provider
}

// Signup creates the identity, provisions its default profile and signs it in.
// A failed profile save is logged and does not fail the sign-up.
func (f *Facade) Signup(ctx context.Context, email, password, username string) Result {
	return observe("signup", f.signup(ctx, email, password, username))
}

func (f *Facade) signup(ctx context.Context, email, password, username string) Result {
	f.persistence.Ensure(ctx)

	creds, err := f.provider.SignUp(ctx, email, password)
	if err != nil {
		slog.Info("Sign up rejected", "email", email, "error", err)
		return failure(err)
	}
	creds = f.refresh(ctx, creds)

	delta := models.DefaultProfileDelta(username, f.defaultAvatar)
	if err := f.profiles.Merge(ctx, creds.Identity.ID, delta); err != nil {
		slog.Warn("Could not save default profile", "user_id", creds.Identity.ID, "error", err)
	}

	return f.bind(ctx, creds)
}

// Login authenticates against the provider and opens a new login session.
func (f *Facade) Login(ctx context.Context, email, password string) Result {
	return observe("login", f.login(ctx, email, password))
}

func (f *Facade) login(ctx context.Context, email, password string) Result {
	f.persistence.Ensure(ctx)

	creds, err := f.provider.SignIn(ctx, email, password)
	if err != nil {
		slog.Info("Sign in rejected", "email", email, "error", err)
		return failure(err)
	}
	return f.bind(ctx, f.refresh(ctx, creds))
}

// Logout ends the login session sid. The local session is removed even when
// the provider cannot revoke its token.
func (f *Facade) Logout(ctx context.Context, sid string) Result {
	return observe("logout", f.logout(ctx, sid))
}

func (f *Facade) logout(ctx context.Context, sid string) Result {
	store := f.persistence.Ensure(ctx)

	sess, err := f.Current(ctx, sid)
	if err != nil {
		return failure(err)
	}
	if sess == nil {
		return failure(identity.ErrNotAuthenticated)
	}
	if err := f.provider.SignOut(ctx, sess.AccessToken); err != nil {
		slog.Warn("Provider sign out failed", "user_id", sess.Identity.ID, "error", err)
	}
	if err := store.Delete(ctx, sid); err != nil {
		return failure(fmt.Errorf("failed to end session: %w", err))
	}

	f.hub.publish(State{SessionID: sid})
	return Result{Success: true}
}

// Current returns the login session sid, or nil when it is not signed in.
func (f *Facade) Current(ctx context.Context, sid string) (*Session, error) {
	if sid == "" {
		return nil, nil
	}
	sess, err := f.persistence.Ensure(ctx).Get(ctx, sid)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Authenticate resolves a raw token to its live session. Invalid tokens and
// revoked sessions resolve to nil.
func (f *Facade) Authenticate(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, nil
	}
	claims, err := f.tokens.Parse(raw)
	if err != nil {
		slog.Debug("Rejected token", "error", err)
		return nil, nil
	}
	return f.Resolve(ctx, claims)
}

// Resolve looks up the session named by already verified claims.
func (f *Facade) Resolve(ctx context.Context, claims Claims) (*Session, error) {
	sess, err := f.Current(ctx, claims.SessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Identity.ID != claims.Subject {
		return nil, nil
	}
	return sess, nil
}

// Subscribe registers obs for state changes of sid. It fires once right away
// with the current state, then on every sign-in and sign-out of sid. An
// empty sid observes every session and does not fire initially.
func (f *Facade) Subscribe(ctx context.Context, sid string, obs Observer) (unsubscribe func()) {
	unsubscribe = f.hub.add(sid, obs)
	if sid == "" {
		return unsubscribe
	}

	st := State{SessionID: sid}
	sess, err := f.Current(ctx, sid)
	if err != nil {
		slog.Warn("Could not read session state", "session_id", sid, "error", err)
	}
	if sess != nil {
		id := sess.Identity
		st.SignedIn = true
		st.Identity = &id
	}
	obs(st)
	return unsubscribe
}

// Observers reports how many observers are subscribed.
func (f *Facade) Observers() int {
	return f.hub.count()
}

// Forget drops the login session sid without contacting the provider. It is
// used once the identity itself is gone.
func (f *Facade) Forget(ctx context.Context, sid string) {
	if err := f.persistence.Ensure(ctx).Delete(ctx, sid); err != nil {
		slog.Warn("Could not drop session", "session_id", sid, "error", err)
	}
	f.hub.publish(State{SessionID: sid})
}

// refresh forces a fresh access token. Failure keeps the original credentials.
func (f *Facade) refresh(ctx context.Context, creds models.Credentials) models.Credentials {
	if creds.RefreshToken == "" {
		return creds
	}
	fresh, err := f.provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		slog.Warn("Token refresh failed", "user_id", creds.Identity.ID, "error", err)
		return creds
	}
	return fresh
}

func (f *Facade) bind(ctx context.Context, creds models.Credentials) Result {
	sess := Session{
		ID:           uuid.NewString(),
		Identity:     creds.Identity,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		CreatedAt:    time.Now().UTC(),
	}
	if err := f.persistence.Ensure(ctx).Save(ctx, sess); err != nil {
		slog.Error("Failed to store session", "user_id", sess.Identity.ID, "error", err)
		return failure(fmt.Errorf("failed to start session: %w", err))
	}

	token, err := f.tokens.Generate(sess.Identity, sess.ID)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		return failure(fmt.Errorf("failed to generate token: %w", err))
	}

	id := sess.Identity
	f.hub.publish(State{SessionID: sess.ID, SignedIn: true, Identity: &id})
	return Result{Success: true, Identity: &id, Token: token, SessionID: sess.ID}
}
