package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePoster struct {
	mu       sync.Mutex
	channels []string
	posted   chan struct{}
}

func newCapturePoster() *capturePoster {
	return &capturePoster{posted: make(chan struct{}, 16)}
}

func (c *capturePoster) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	c.mu.Lock()
	c.channels = append(c.channels, channelID)
	c.mu.Unlock()
	c.posted <- struct{}{}
	return channelID, "ts", nil
}

func (c *capturePoster) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

func newTestAlerter(poster *capturePoster) *SlackAlerter {
	return &SlackAlerter{
		client:   poster,
		channel:  "C123",
		cooldown: defaultCooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

func waitPosted(t *testing.T, poster *capturePoster) {
	t.Helper()
	select {
	case <-poster.posted:
	case <-time.After(2 * time.Second):
		t.Fatal("alert never posted")
	}
}

func TestAlertPostsToChannel(t *testing.T) {
	poster := newCapturePoster()
	a := newTestAlerter(poster)

	a.Alert("backend turn failed", errors.New("boom"))
	waitPosted(t, poster)

	require.Equal(t, 1, poster.count())
	assert.Equal(t, "C123", poster.channels[0])
}

func TestAlertCooldownSuppressesRepeats(t *testing.T) {
	poster := newCapturePoster()
	a := newTestAlerter(poster)

	a.Alert("backend turn failed", errors.New("boom"))
	waitPosted(t, poster)
	a.Alert("backend turn failed", errors.New("boom again"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, poster.count())
}

func TestAlertDistinctSummariesPass(t *testing.T) {
	poster := newCapturePoster()
	a := newTestAlerter(poster)

	a.Alert("backend turn failed", errors.New("boom"))
	a.Alert("transcript write failed", errors.New("disk full"))
	waitPosted(t, poster)
	waitPosted(t, poster)

	assert.Equal(t, 2, poster.count())
}

func TestAlertCooldownExpires(t *testing.T) {
	poster := newCapturePoster()
	a := newTestAlerter(poster)

	base := time.Now()
	current := base
	var mu sync.Mutex
	a.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	a.Alert("backend turn failed", errors.New("boom"))
	waitPosted(t, poster)

	mu.Lock()
	current = base.Add(defaultCooldown + time.Second)
	mu.Unlock()

	a.Alert("backend turn failed", errors.New("boom"))
	waitPosted(t, poster)
	assert.Equal(t, 2, poster.count())
}
