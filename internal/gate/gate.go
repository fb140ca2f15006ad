// Package gate provides a single-slot pending gate used to de-duplicate
// explicit trigger calls: at most one apply may be pending at a time, and
// callers that lose the race get an immediate non-blocking no-op.
package gate

import "sync"

// Gate tracks whether an apply is pending.
type Gate struct {
	mu      sync.Mutex
	pending bool
}

// New creates an open gate.
func New() *Gate {
	return &Gate{}
}

// TryBegin marks an apply as pending. It reports false, without
// blocking, when another apply is already pending.
func (g *Gate) TryBegin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending {
		return false
	}
	g.pending = true
	return true
}

// Finish clears the pending marker. Calling Finish on an open gate is a
// no-op.
func (g *Gate) Finish() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pending = false
}

// Pending reports whether an apply is currently pending.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.pending
}
