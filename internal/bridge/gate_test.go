package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateStickySignal(t *testing.T) {
	g := NewGate()
	g.Signal()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ran := false
	err := g.Do(ctx, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGateSignalsCollapse(t *testing.T) {
	g := NewGate()
	g.Signal()
	g.Signal()
	g.Signal()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, g.Do(ctx, func() error { return nil }))

	// Only one permit was retained; the next action must wait.
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	err := g.Do(short, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGateBlocksUntilSignalled(t *testing.T) {
	g := NewGate()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- g.Do(ctx, func() error { return nil })
	}()

	<-started
	select {
	case err := <-done:
		t.Fatalf("guarded action ran before signal: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	g.Signal()
	require.NoError(t, <-done)
}

func TestGateMutualExclusion(t *testing.T) {
	g := NewGate()

	var running atomic.Int32
	var overlapped atomic.Bool
	var wg sync.WaitGroup

	action := func() error {
		if running.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.Do(ctx, action))
		}()
	}

	// One signal per guarded action.
	for i := 0; i < 4; i++ {
		g.Signal()
		time.Sleep(15 * time.Millisecond)
	}
	wg.Wait()

	assert.False(t, overlapped.Load(), "guarded actions overlapped")
}

func TestGateResetsAfterFailure(t *testing.T) {
	g := NewGate()
	boom := errors.New("boom")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	g.Signal()
	err := g.Do(ctx, func() error { return boom })
	require.ErrorIs(t, err, boom)

	// The exclusive slot must be free again.
	g.Signal()
	require.NoError(t, g.Do(ctx, func() error { return nil }))
}

func TestGateCancelledWhileWaiting(t *testing.T) {
	g := NewGate()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Do(ctx, func() error { return nil })
	require.ErrorIs(t, err, context.Canceled)

	// Cancellation released the slot.
	g.Signal()
	ok, cancelOK := context.WithTimeout(context.Background(), time.Second)
	defer cancelOK()
	require.NoError(t, g.Do(ok, func() error { return nil }))
}
