package app

import "sync"

// ReadyGate is a one-shot application readiness signal. Callbacks
// subscribed before the gate fires are drained exactly once when it does;
// callbacks subscribed afterwards run immediately. Repeat Fire calls are
// no-ops, so subscribers keep the at-most-once property regardless of how
// the surrounding lifecycle signals readiness.
type ReadyGate struct {
	mu      sync.Mutex
	fired   bool
	pending []func()
}

// NewReadyGate creates an unfired gate.
func NewReadyGate() *ReadyGate {
	return &ReadyGate{}
}

// OnReady subscribes a callback to the ready signal.
func (g *ReadyGate) OnReady(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	if g.fired {
		g.mu.Unlock()
		fn()
		return
	}
	g.pending = append(g.pending, fn)
	g.mu.Unlock()
}

// Fire signals readiness and drains pending callbacks in subscription
// order. Only the first call has any effect.
func (g *ReadyGate) Fire() {
	g.mu.Lock()
	if g.fired {
		g.mu.Unlock()
		return
	}
	g.fired = true
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// Fired reports whether the gate has been signalled.
func (g *ReadyGate) Fired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired
}
