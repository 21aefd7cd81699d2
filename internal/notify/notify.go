package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/harunnryd/kakehashi/internal/config"
	"github.com/slack-go/slack"
)

// poster is the slice of the Slack API the alerter needs.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackAlerter posts turn-fatal errors to a Slack channel. Posting is
// fire-and-forget with a per-summary cooldown so a flapping backend does
// not flood the channel.
type SlackAlerter struct {
	client  poster
	channel string

	mu       sync.Mutex
	cooldown time.Duration
	lastSent map[string]time.Time
	now      func() time.Time
}

const defaultCooldown = 5 * time.Minute

func NewSlackAlerter(cfg config.AlertsConfig) *SlackAlerter {
	token := cfg.BotToken
	if token == "" {
		token = os.Getenv("SLACK_BOT_TOKEN")
	}
	return &SlackAlerter{
		client:   slack.New(token),
		channel:  cfg.Channel,
		cooldown: defaultCooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (a *SlackAlerter) Alert(summary string, err error) {
	if !a.shouldSend(summary) {
		slog.Debug("Alert suppressed by cooldown", "summary", summary)
		return
	}

	text := fmt.Sprintf(":rotating_light: %s\n```%v```", summary, err)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, _, postErr := a.client.PostMessageContext(ctx, a.channel, slack.MsgOptionText(text, false)); postErr != nil {
			slog.Error("Failed to post alert", "error", postErr)
			return
		}
		slog.Debug("Alert posted", "channel", a.channel)
	}()
}

// shouldSend applies the cooldown keyed by summary, so distinct failures
// still get through while repeats of the same one are muted.
func (a *SlackAlerter) shouldSend(summary string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if last, ok := a.lastSent[summary]; ok && now.Sub(last) < a.cooldown {
		return false
	}
	a.lastSent[summary] = now
	return true
}
