package bridge

import "context"

// Gate decouples "query sent" from "host identifiers available". The host
// UI thread signals readiness when it acknowledges a query; the turn task
// waits on that signal before injecting anything. The two sides share no
// other causal ordering.
//
// A signal arriving while nobody waits is retained until consumed, so the
// first acknowledgement is never lost to a race. At most one guarded action
// runs at a time; consuming the permit resets the gate, and the exclusive
// slot is released on exit no matter how the action ends.
type Gate struct {
	signal chan struct{}
	busy   chan struct{}
}

func NewGate() *Gate {
	return &Gate{
		signal: make(chan struct{}, 1),
		busy:   make(chan struct{}, 1),
	}
}

// Signal marks the gate ready. Repeated signals before consumption collapse
// into one permit.
func (g *Gate) Signal() {
	select {
	case g.signal <- struct{}{}:
	default:
	}
}

// Do waits for exclusive access and a readiness permit, then runs fn.
// The permit is consumed exactly once per run; the exclusive slot is
// released when fn returns, success or failure.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	select {
	case g.busy <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.busy }()

	select {
	case <-g.signal:
	case <-ctx.Done():
		return ctx.Err()
	}

	return fn()
}
