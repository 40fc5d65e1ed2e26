package auth

import (
	"slices"
	"sync"

	"github.com/illegalcall/fittrack/internal/models"
)

// State is the auth state of one login session as seen by observers.
type State struct {
	SessionID string           `json:"sessionId"`
	SignedIn  bool             `json:"signedIn"`
	Identity  *models.Identity `json:"identity,omitempty"`
}

// Observer is notified on every sign-in and sign-out it subscribed to.
type Observer func(State)

type subscription struct {
	sid      string
	observer Observer
}

// hub fans auth state changes out to subscribers. Observers are called
// synchronously, outside the hub lock, in subscription order.
type hub struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]subscription
}

func newHub() *hub {
	return &hub{subs: make(map[uint64]subscription)}
}

func (h *hub) add(sid string, obs Observer) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscription{sid: sid, observer: obs}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) publish(st State) {
	h.mu.Lock()
	ids := make([]uint64, 0, len(h.subs))
	for id, sub := range h.subs {
		if sub.sid == "" || sub.sid == st.SessionID {
			ids = append(ids, id)
		}
	}
	observers := make([]Observer, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		observers = append(observers, h.subs[id].observer)
	}
	h.mu.Unlock()

	for _, obs := range observers {
		obs(st)
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
