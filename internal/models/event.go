package models

import "time"

// Event types published to the event stream.
const (
	EventSignedIn       = "auth.signed_in"
	EventSignedOut      = "auth.signed_out"
	EventSessionLogged  = "session.logged"
	EventAdminToggled   = "admin.toggled"
	EventProfileDeleted = "admin.profile_deleted"
	EventTipAdded       = "admin.tip_added"
	EventTipDeleted     = "admin.tip_deleted"
	EventAccountDeleted = "account.deleted"
)

// Event is an audit record of something a user or admin did.
type Event struct {
	Type      string    `json:"type" db:"type"`
	ActorID   string    `json:"actor_id,omitempty" db:"actor_id"`
	TargetID  string    `json:"target_id,omitempty" db:"target_id"`
	SessionID string    `json:"session_id,omitempty" db:"session_id"`
	At        time.Time `json:"at" db:"at"`
}
