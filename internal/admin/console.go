// Package admin implements the privileged console: the admin gate, the
// profile listing and tips management.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/events"
	"github.com/illegalcall/fittrack/internal/metrics"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

var (
	ErrTipTextRequired = errors.New("tip text is required")
	ErrNotConfirmed    = errors.New("action not confirmed")
	ErrControlBusy     = errors.New("action already in progress")
	ErrNotAdmin        = errors.New("access denied")
)

// Status messages shown by the console page.
const (
	MsgLoginRequired = "Please login to access admin."
	MsgAccessDenied  = "Access denied. Your profile does not have isAdmin=true."
	MsgLoadFailed    = "Failed to load users."
	MsgTipAdded      = "Added!"
	MsgTipTextNeeded = "Tip text is required."
)

// Confirmation prompts for destructive actions.
const (
	PromptDeleteProfile = "Delete this profile document? This does NOT delete the auth identity."
	PromptDeleteTip     = "Delete this tip?"
)

// Confirm asks the operator to approve a destructive action.
type Confirm func(prompt string) bool

// Always approves every prompt.
func Always(string) bool { return true }

// Gate is the outcome of the admin check.
type Gate int

const (
	GateLoginRequired Gate = iota
	GateDenied
	GateGranted
)

func (g Gate) String() string {
	switch g {
	case GateLoginRequired:
		return "login_required"
	case GateDenied:
		return "denied"
	case GateGranted:
		return "granted"
	}
	return fmt.Sprintf("gate(%d)", int(g))
}

// Page is what Open hands to the view. State is only populated when the gate
// was passed.
type Page struct {
	Gate   Gate
	Status string
	State  State
}

type Console struct {
	profiles storage.ProfileStore
	tips     storage.TipStore
	events   events.Publisher
	guard    *Guard
}

func NewConsole(profiles storage.ProfileStore, tips storage.TipStore, pub events.Publisher) *Console {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Console{profiles: profiles, tips: tips, events: pub, guard: NewGuard()}
}

// Guard exposes the in-flight control tracker.
func (c *Console) Guard() *Guard { return c.guard }

// Check runs the admin gate for caller without loading anything else. A
// profile that cannot be read counts as not admin.
func (c *Console) Check(ctx context.Context, caller *auth.Session) Gate {
	if caller == nil {
		return GateLoginRequired
	}
	p, err := c.profiles.Get(ctx, caller.Identity.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("Admin gate could not load profile", "user_id", caller.Identity.ID, "error", err)
		}
		return GateDenied
	}
	if !p.IsAdmin {
		return GateDenied
	}
	return GateGranted
}

// Open runs the gate and, only when it passes, loads every profile and tip.
func (c *Console) Open(ctx context.Context, caller *auth.Session) Page {
	switch gate := c.Check(ctx, caller); gate {
	case GateLoginRequired:
		return Page{Gate: gate, Status: MsgLoginRequired}
	case GateDenied:
		return Page{Gate: gate, Status: MsgAccessDenied}
	}

	page := Page{Gate: GateGranted}
	users, err := c.profiles.List(ctx)
	if err != nil {
		slog.Error("Failed to load profiles", "error", err)
		page.Status = MsgLoadFailed
		return page
	}
	page.State = page.State.WithUsers(users)

	tips, err := c.tips.Recent(ctx, 0)
	if err != nil {
		slog.Error("Failed to load tips", "error", err)
		page.Status = MsgLoadFailed
		return page
	}
	page.State = page.State.WithTips(tips)
	return page
}

// ToggleAdmin flips the admin flag of id as cached in st. Concurrent toggles
// of the same record from different operators are last-write-wins.
func (c *Console) ToggleAdmin(ctx context.Context, caller *auth.Session, st State, id string) (State, error) {
	release, err := c.guard.Acquire(controlKey(caller, "toggle-admin:"+id))
	if err != nil {
		return st, err
	}
	defer release()

	current, ok := st.User(id)
	if !ok {
		return st, storage.ErrNotFound
	}
	next := !current.IsAdmin
	err = c.profiles.Merge(ctx, id, models.ProfileDelta{IsAdmin: models.Set(next)})
	c.record("toggle_admin", err)
	if err != nil {
		return st, err
	}
	c.publish(caller, models.EventAdminToggled, id)
	return st.WithAdmin(id, next), nil
}

// DeleteProfile removes the profile document of id after confirmation. The
// identity itself is left alone. A profile that is already gone counts as
// deleted.
func (c *Console) DeleteProfile(ctx context.Context, caller *auth.Session, st State, id string, confirm Confirm) (State, error) {
	release, err := c.guard.Acquire(controlKey(caller, "delete-profile:"+id))
	if err != nil {
		return st, err
	}
	defer release()

	if confirm == nil || !confirm(PromptDeleteProfile) {
		return st, ErrNotConfirmed
	}
	err = ignoreMissing(c.profiles.Delete(ctx, id))
	c.record("delete_profile", err)
	if err != nil {
		return st, err
	}
	c.publish(caller, models.EventProfileDeleted, id)
	return st.WithoutUser(id), nil
}

// AddTip creates a tip and reloads the tip list. The body text is required;
// a blank title becomes "Tip".
func (c *Console) AddTip(ctx context.Context, caller *auth.Session, st State, req models.NewTipRequest) (State, error) {
	release, err := c.guard.Acquire(controlKey(caller, "add-tip"))
	if err != nil {
		return st, err
	}
	defer release()

	title := strings.TrimSpace(req.Title)
	text := strings.TrimSpace(req.Text)
	imageURL := strings.TrimSpace(req.ImageURL)
	if text == "" {
		return st, ErrTipTextRequired
	}
	if title == "" {
		title = models.DefaultTipTitle
	}

	tip := models.Tip{Title: title, Text: text}
	if imageURL != "" {
		tip.ImageURL = &imageURL
	}
	if caller != nil {
		uid := caller.Identity.ID
		tip.CreatedBy = &uid
	}

	created, err := c.tips.Create(ctx, tip)
	c.record("add_tip", err)
	if err != nil {
		return st, err
	}
	c.publish(caller, models.EventTipAdded, created.ID)

	tips, err := c.tips.Recent(ctx, 0)
	if err != nil {
		return st, fmt.Errorf("tip added but reload failed: %w", err)
	}
	return st.WithTips(tips), nil
}

// DeleteTip removes a tip after confirmation and drops it from the cached
// list without reloading. A tip that is already gone counts as deleted.
func (c *Console) DeleteTip(ctx context.Context, caller *auth.Session, st State, id string, confirm Confirm) (State, error) {
	release, err := c.guard.Acquire(controlKey(caller, "delete-tip:"+id))
	if err != nil {
		return st, err
	}
	defer release()

	if confirm == nil || !confirm(PromptDeleteTip) {
		return st, ErrNotConfirmed
	}
	err = ignoreMissing(c.tips.Delete(ctx, id))
	c.record("delete_tip", err)
	if err != nil {
		return st, err
	}
	c.publish(caller, models.EventTipDeleted, id)
	return st.WithoutTip(id), nil
}

// controlKey scopes a control to the session that pressed it.
func controlKey(caller *auth.Session, control string) string {
	if caller == nil {
		return control
	}
	return caller.ID + ":" + control
}

func ignoreMissing(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Console) record(action string, err error) {
	metrics.AdminActions.WithLabelValues(action, metrics.Outcome(err)).Inc()
	if err != nil {
		slog.Error("Admin action failed", "action", action, "error", err)
	}
}

func (c *Console) publish(caller *auth.Session, eventType, target string) {
	ev := models.Event{Type: eventType, TargetID: target}
	if caller != nil {
		ev.ActorID = caller.Identity.ID
		ev.SessionID = caller.ID
	}
	c.events.Publish(ev)
}
