// Package memory is an in-process document store used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

var (
	_ storage.ProfileStore       = (*Profiles)(nil)
	_ storage.SessionRecordStore = (*Sessions)(nil)
	_ storage.TipStore           = (*Tips)(nil)
	_ storage.AuditStore         = (*Audit)(nil)
)

// clock stamps server-assigned timestamps and a sequence that breaks ties
// between documents created within the same tick.
type clock struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64
}

func (c *clock) tick() (time.Time, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.now(), c.seq
}

type entry[T any] struct {
	seq int64
	doc T
}

func newestFirst[T any](entries []entry[T], createdAt func(T) time.Time) {
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := createdAt(entries[i].doc), createdAt(entries[j].doc)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].seq > entries[j].seq
	})
}

// New returns empty stores using the wall clock.
func New() storage.Stores {
	return NewWithClock(time.Now)
}

// NewWithClock returns empty stores that stamp documents with now().
func NewWithClock(now func() time.Time) storage.Stores {
	c := &clock{now: now}
	return storage.Stores{
		Profiles: &Profiles{clock: c, docs: make(map[string]models.Profile)},
		Sessions: &Sessions{clock: c, docs: make(map[string][]entry[models.SessionRecord])},
		Tips:     &Tips{clock: c, docs: make(map[string]entry[models.Tip])},
		Audit:    &Audit{},
	}
}

// Profiles is the profiles collection.
type Profiles struct {
	clock *clock
	mu    sync.RWMutex
	docs  map[string]models.Profile
}

func (s *Profiles) Get(_ context.Context, id string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.docs[id]
	if !ok {
		return models.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Profiles) Merge(_ context.Context, id string, delta models.ProfileDelta) error {
	now, _ := s.clock.tick()
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.docs[id]
	if !ok {
		p = models.Profile{ID: id, Gender: models.GenderMale, AvatarURL: models.DefaultAvatarURL}
	}
	p = delta.Apply(p)
	p.UpdatedAt = now
	s.docs[id] = p
	return nil
}

func (s *Profiles) Put(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[p.ID] = p
	return nil
}

func (s *Profiles) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *Profiles) List(_ context.Context) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Profile, 0, len(s.docs))
	for _, p := range s.docs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Sessions is the per-profile workout log.
type Sessions struct {
	clock *clock
	mu    sync.RWMutex
	docs  map[string][]entry[models.SessionRecord]
}

func (s *Sessions) Append(_ context.Context, rec models.SessionRecord) (models.SessionRecord, error) {
	now, seq := s.clock.tick()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[rec.ProfileID] = append(s.docs[rec.ProfileID], entry[models.SessionRecord]{seq: seq, doc: rec})
	return rec, nil
}

func (s *Sessions) Recent(_ context.Context, profileID string, max int) ([]models.SessionRecord, error) {
	s.mu.RLock()
	entries := append([]entry[models.SessionRecord](nil), s.docs[profileID]...)
	s.mu.RUnlock()

	newestFirst(entries, func(r models.SessionRecord) time.Time { return r.CreatedAt })
	if max > 0 && len(entries) > max {
		entries = entries[:max]
	}
	out := make([]models.SessionRecord, len(entries))
	for i, e := range entries {
		out[i] = e.doc
	}
	return out, nil
}

// Tips is the global tips collection.
type Tips struct {
	clock *clock
	mu    sync.RWMutex
	docs  map[string]entry[models.Tip]
}

func (s *Tips) Create(_ context.Context, tip models.Tip) (models.Tip, error) {
	now, seq := s.clock.tick()
	tip.ID = uuid.NewString()
	tip.CreatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[tip.ID] = entry[models.Tip]{seq: seq, doc: tip}
	return tip, nil
}

func (s *Tips) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *Tips) Recent(_ context.Context, limit int) ([]models.Tip, error) {
	s.mu.RLock()
	entries := make([]entry[models.Tip], 0, len(s.docs))
	for _, e := range s.docs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	newestFirst(entries, func(t models.Tip) time.Time { return t.CreatedAt })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]models.Tip, len(entries))
	for i, e := range entries {
		out[i] = e.doc
	}
	return out, nil
}

// Audit collects events in memory.
type Audit struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *Audit) Record(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (s *Audit) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event(nil), s.events...)
}
