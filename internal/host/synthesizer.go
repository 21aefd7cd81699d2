package host

import (
	"log/slog"
	"sync"
)

// Synthesizer ties the correlation tracker to the injector: it stamps each
// frame with the next sequence slot and reports whether delivery happened.
// An unusable context is a soft no-op, logged and reported as false, never
// an error that could tear down the turn.
type Synthesizer struct {
	mu       sync.Mutex
	tracker  *Tracker
	injector *Injector
}

func NewSynthesizer(tracker *Tracker, injector *Injector) *Synthesizer {
	return &Synthesizer{tracker: tracker, injector: injector}
}

func (s *Synthesizer) Tracker() *Tracker {
	return s.tracker
}

// InjectInterim synthesizes and delivers one content frame.
func (s *Synthesizer) InjectInterim(content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.tracker.NextContentFrame()
	if !ok {
		slog.Warn("Interim frame skipped, correlation context unusable")
		return false
	}

	slog.Debug("Injecting interim frame", "sequence", meta.Sequence, "first", meta.First)
	return s.injector.Inject(InterimFrame(content, meta))
}

// InjectTerminal synthesizes and delivers the closing frame and finishes
// the turn's correlation state.
func (s *Synthesizer) InjectTerminal(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.tracker.TerminalFrame()
	if !ok {
		slog.Warn("Terminal frame skipped, correlation context unusable")
		return false
	}

	slog.Debug("Injecting terminal frame", "sequence", meta.Sequence)
	return s.injector.Inject(TerminalFrame(query, meta))
}
