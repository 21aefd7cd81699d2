package host

import (
	"sync"
	"time"
)

// FrameMeta is one frame's addressing slice of the correlation state.
type FrameMeta struct {
	IDs       Identifiers
	Sequence  int
	Timestamp time.Time
	First     bool
}

// Tracker holds the host-assigned identifiers for the active turn plus the
// per-turn sequence counter. The host allocates the identifiers when it
// acknowledges a query; without them a synthesized frame is unaddressable
// and the UI drops it.
//
// The host renders every frame of a turn with the timestamp of the first
// one, so the timestamp is captured once at sequence 0 and reused.
type Tracker struct {
	mu            sync.Mutex
	ids           Identifiers
	sequence      int
	turnTimestamp time.Time
	onNewRoom     func()

	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// SetOnNewRoom registers the callback fired when a refresh lands on a
// different room, i.e. the host opened a new conversation surface.
func (t *Tracker) SetOnNewRoom(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onNewRoom = fn
}

// Refresh overwrites the correlation identifiers and resets the sequence.
func (t *Tracker) Refresh(ids Identifiers) {
	t.mu.Lock()
	newRoom := t.ids.RoomID != ids.RoomID
	notify := t.onNewRoom
	t.ids = ids
	t.sequence = 0
	t.mu.Unlock()

	if newRoom && notify != nil {
		notify()
	}
}

// Usable reports whether frame synthesis can currently address the host.
func (t *Tracker) Usable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ids.Usable()
}

// NextContentFrame hands out metadata for one interim frame and advances
// the sequence. The first call since the last refresh fixes the turn
// timestamp. Returns false when the context is not usable; callers treat
// that as a soft no-op.
func (t *Tracker) NextContentFrame() (FrameMeta, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.ids.Usable() {
		return FrameMeta{}, false
	}

	first := t.sequence == 0
	if first {
		t.turnTimestamp = t.now()
	}

	meta := FrameMeta{
		IDs:       t.ids,
		Sequence:  t.sequence,
		Timestamp: t.turnTimestamp,
		First:     first,
	}
	t.sequence++
	return meta, true
}

// TerminalFrame hands out metadata for the closing frame and clears the
// turn state: record and session identifiers are dropped, the room is
// kept. Returns false when the context is unusable or no content frame
// ever fixed a timestamp.
func (t *Tracker) TerminalFrame() (FrameMeta, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.ids.Usable() || t.turnTimestamp.IsZero() {
		return FrameMeta{}, false
	}

	meta := FrameMeta{
		IDs:       t.ids,
		Sequence:  t.sequence,
		Timestamp: t.turnTimestamp,
	}

	t.ids.SessionID = ""
	t.ids.RecordID = ""
	t.ids.OriginalRecordID = ""
	t.sequence = 0
	return meta, true
}
