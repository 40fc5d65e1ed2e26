// Package sessionlog appends and reads the caller's workout sessions.
package sessionlog

import (
	"context"
	"log/slog"

	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/events"
	"github.com/illegalcall/fittrack/internal/identity"
	"github.com/illegalcall/fittrack/internal/metrics"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

type Log struct {
	records storage.SessionRecordStore
	events  events.Publisher
}

func New(records storage.SessionRecordStore, pub events.Publisher) *Log {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Log{records: records, events: pub}
}

// Log stores in under the caller's profile. Numeric fields that are missing
// or not numbers are stored as 0.
func (l *Log) Log(ctx context.Context, caller *auth.Session, in models.SessionInput) (models.SessionRecord, error) {
	if caller == nil {
		return models.SessionRecord{}, identity.ErrNotAuthenticated
	}
	rec, err := l.records.Append(ctx, in.Record(caller.Identity.ID))
	if err != nil {
		return models.SessionRecord{}, err
	}
	metrics.SessionsLogged.Inc()
	slog.Debug("Session logged", "user_id", caller.Identity.ID, "exercise", rec.Exercise, "reps", rec.Reps)
	l.events.Publish(models.Event{
		Type:      models.EventSessionLogged,
		ActorID:   caller.Identity.ID,
		TargetID:  rec.ID,
		SessionID: caller.ID,
	})
	return rec, nil
}

// LoadRecent returns up to max of the caller's sessions, newest first. A
// non-positive max means the default of 50.
func (l *Log) LoadRecent(ctx context.Context, caller *auth.Session, max int) ([]models.SessionRecord, error) {
	if caller == nil {
		return nil, identity.ErrNotAuthenticated
	}
	if max <= 0 {
		max = models.DefaultRecentSessions
	}
	return l.records.Recent(ctx, caller.Identity.ID, max)
}
