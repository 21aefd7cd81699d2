package host

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIDs = Identifiers{
	SessionID:        "s1",
	RecordID:         "r1",
	OriginalRecordID: "o1",
	RoomID:           "room1",
}

func TestTrackerUnusableUntilRefresh(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.Usable())
	_, ok := tr.NextContentFrame()
	assert.False(t, ok)
	_, ok = tr.TerminalFrame()
	assert.False(t, ok)

	tr.Refresh(testIDs)
	assert.True(t, tr.Usable())
}

func TestTrackerSequenceStrictlyIncreasing(t *testing.T) {
	tr := NewTracker()
	tr.Refresh(testIDs)

	for want := 0; want < 5; want++ {
		meta, ok := tr.NextContentFrame()
		require.True(t, ok)
		assert.Equal(t, want, meta.Sequence)
		assert.Equal(t, want == 0, meta.First)
	}

	tr.Refresh(testIDs)
	meta, ok := tr.NextContentFrame()
	require.True(t, ok)
	assert.Equal(t, 0, meta.Sequence)
	assert.True(t, meta.First)
}

func TestTrackerTimestampStableWithinTurn(t *testing.T) {
	tr := NewTracker()
	base := time.UnixMilli(1700000000000)
	calls := 0
	tr.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}

	tr.Refresh(testIDs)

	first, _ := tr.NextContentFrame()
	second, _ := tr.NextContentFrame()
	terminal, ok := tr.TerminalFrame()
	require.True(t, ok)

	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, first.Timestamp, terminal.Timestamp)

	// Next turn gets a fresh timestamp.
	tr.Refresh(testIDs)
	next, _ := tr.NextContentFrame()
	assert.NotEqual(t, first.Timestamp, next.Timestamp)
}

func TestTrackerTerminalClearsTurnKeepsRoom(t *testing.T) {
	tr := NewTracker()
	tr.Refresh(testIDs)
	tr.NextContentFrame()

	meta, ok := tr.TerminalFrame()
	require.True(t, ok)
	assert.Equal(t, 1, meta.Sequence)

	assert.False(t, tr.Usable())
	_, ok = tr.NextContentFrame()
	assert.False(t, ok)

	// Room survives the turn so new-room detection still works.
	ids := testIDs
	ids.RoomID = "room1"
	fired := false
	tr.SetOnNewRoom(func() { fired = true })
	tr.Refresh(ids)
	assert.False(t, fired)
}

func TestTrackerTerminalRequiresContentFrame(t *testing.T) {
	tr := NewTracker()
	tr.Refresh(testIDs)

	// No content frame fixed a timestamp yet.
	_, ok := tr.TerminalFrame()
	assert.False(t, ok)
}

func TestTrackerNewRoomNotification(t *testing.T) {
	tr := NewTracker()
	rooms := 0
	tr.SetOnNewRoom(func() { rooms++ })

	tr.Refresh(testIDs)
	assert.Equal(t, 1, rooms, "first room counts as new")

	tr.Refresh(testIDs)
	assert.Equal(t, 1, rooms, "same room does not fire")

	other := testIDs
	other.RoomID = "room2"
	tr.Refresh(other)
	assert.Equal(t, 2, rooms)
}
