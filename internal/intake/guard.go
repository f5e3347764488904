package intake

import "sync"

// Guard allows one in-flight submission per owner.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewGuard returns an empty Guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// Acquire marks owner busy. ok is false when a submission is already running;
// otherwise release must be called when it finishes.
func (g *Guard) Acquire(owner string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[owner]; busy {
		return nil, false
	}
	g.active[owner] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, owner)
			g.mu.Unlock()
		})
	}, true
}
