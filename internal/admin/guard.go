package admin

import "sync"

// Guard keeps a control disabled while its operation is in flight. Controls
// are per session; different controls may run concurrently, even against the
// same record.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{inFlight: make(map[string]struct{})}
}

// Acquire disables control. The returned release re-enables it and must be
// called whatever the outcome.
func (g *Guard) Acquire(control string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[control]; busy {
		return nil, ErrControlBusy
	}
	g.inFlight[control] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, control)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether control is currently disabled.
func (g *Guard) Busy(control string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[control]
	return busy
}
