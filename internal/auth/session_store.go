package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/illegalcall/fittrack/internal/models"
)

// ErrSessionNotFound is returned when a login session is unknown or revoked.
var ErrSessionNotFound = errors.New("session not found")

// Session is one signed-in login, keyed by a random id carried in the token.
type Session struct {
	ID           string          `json:"id"`
	Identity     models.Identity `json:"identity"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SessionStore keeps login sessions between requests.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	// Get returns ErrSessionNotFound for unknown ids.
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// MemorySessionStore is the transient fallback. Sessions vanish with the process.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) Ping(context.Context) error { return nil }
