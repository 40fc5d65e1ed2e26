package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const persistencePingTimeout = 2 * time.Second

// Persistence decides once per process where login sessions live. The first
// Ensure probes the durable store; every later call reuses that outcome.
type Persistence struct {
	durable SessionStore

	once       sync.Once
	store      SessionStore
	persistent bool
}

// NewPersistence wraps a durable store. A nil store means sessions are
// transient from the start.
func NewPersistence(durable SessionStore) *Persistence {
	return &Persistence{durable: durable}
}

// Ensure returns the session store to use. It never fails: when the durable
// store is unreachable the process continues with in-memory sessions.
func (p *Persistence) Ensure(ctx context.Context) SessionStore {
	p.once.Do(func() {
		if p.durable == nil {
			slog.Info("Session persistence disabled; using in-memory sessions")
			p.store = NewMemorySessionStore()
			return
		}
		pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistencePingTimeout)
		defer cancel()
		if err := p.durable.Ping(pingCtx); err != nil {
			slog.Warn("Session persistence unavailable; falling back to in-memory sessions", "error", err)
			p.store = NewMemorySessionStore()
			return
		}
		p.store = p.durable
		p.persistent = true
	})
	return p.store
}

// Durable reports whether Ensure settled on the durable store.
func (p *Persistence) Durable(ctx context.Context) bool {
	p.Ensure(ctx)
	return p.persistent
}
