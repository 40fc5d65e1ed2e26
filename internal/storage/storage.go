package storage

import (
	"context"
	"errors"

	"github.com/illegalcall/fittrack/internal/models"
)

// ErrNotFound indicates a document does not exist.
var ErrNotFound = errors.New("document not found")

// ProfileStore persists one profile document per identity.
type ProfileStore interface {
	// Get returns ErrNotFound when no profile exists for id.
	Get(ctx context.Context, id string) (models.Profile, error)
	// Merge writes only the fields set in delta, creating the document if
	// it does not exist yet.
	Merge(ctx context.Context, id string, delta models.ProfileDelta) error
	// Put replaces the whole document.
	Put(ctx context.Context, p models.Profile) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Profile, error)
}

// SessionRecordStore is the append-only workout log kept under each profile.
type SessionRecordStore interface {
	// Append assigns ID and CreatedAt and returns the stored record.
	Append(ctx context.Context, rec models.SessionRecord) (models.SessionRecord, error)
	// Recent returns up to max records for profileID, newest first.
	Recent(ctx context.Context, profileID string, max int) ([]models.SessionRecord, error)
}

// TipStore holds the global tips collection.
type TipStore interface {
	// Create assigns ID and CreatedAt and returns the stored tip.
	Create(ctx context.Context, tip models.Tip) (models.Tip, error)
	Delete(ctx context.Context, id string) error
	// Recent returns tips newest first; limit <= 0 means all of them.
	Recent(ctx context.Context, limit int) ([]models.Tip, error)
}

// AuditStore records consumed events.
type AuditStore interface {
	Record(ctx context.Context, ev models.Event) error
}

// Stores bundles every document collection the service uses.
type Stores struct {
	Profiles ProfileStore
	Sessions SessionRecordStore
	Tips     TipStore
	Audit    AuditStore
}
