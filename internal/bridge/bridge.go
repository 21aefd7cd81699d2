package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/kakehashi/internal/chat"
	"github.com/harunnryd/kakehashi/internal/config"
	kerrors "github.com/harunnryd/kakehashi/internal/errors"
	"github.com/harunnryd/kakehashi/internal/host"
	"github.com/oklog/ulid/v2"
)

// Streamer is one backend completion stream. Rebuilt from a fresh config
// snapshot at every turn start.
type Streamer interface {
	Stream(ctx context.Context, messages []chat.Message, tools []chat.ToolDef) <-chan chat.Event
}

// ToolRunner executes backend-requested tool calls. Execute never fails:
// failures come back as the payload string.
type ToolRunner interface {
	Definitions() []chat.ToolDef
	Execute(ctx context.Context, call chat.ToolCall) string
}

// Notifier receives turn-fatal errors.
type Notifier interface {
	Alert(summary string, err error)
}

// TurnRecord is the transcript entry for one finished turn.
type TurnRecord struct {
	ID        string
	Query     string
	Reply     string
	ToolCalls []chat.ToolCall
	Err       string
	Started   time.Time
	Elapsed   time.Duration
}

// Recorder persists finished turns.
type Recorder interface {
	Record(rec TurnRecord)
}

// Bridge owns the conversation: it decides fallback vs. custom routing,
// runs at most one backend turn at a time, and drives the synthesizer's
// output into the host. New input always preempts the in-flight turn.
type Bridge struct {
	cfg   *config.Holder
	synth *host.Synthesizer
	gate  *Gate
	sess  *chat.Session
	tools ToolRunner

	notify Notifier
	record Recorder

	newStreamer func(config.BackendConfig) (Streamer, error)
	now         func() time.Time

	mu          sync.Mutex
	baseCtx     context.Context
	cancelTurn  context.CancelFunc
	lastQuery   string
	lastQueryAt time.Time

	wakeMu      sync.Mutex
	wakePattern string
	wakeRe      *regexp.Regexp

	passThrough atomic.Bool
}

func New(cfg *config.Holder, synth *host.Synthesizer, tools ToolRunner) *Bridge {
	b := &Bridge{
		cfg:   cfg,
		synth: synth,
		gate:  NewGate(),
		sess:  chat.NewSession(),
		tools: tools,
		now:   time.Now,
		newStreamer: func(backend config.BackendConfig) (Streamer, error) {
			return chat.NewClient(backend)
		},
	}
	synth.Tracker().SetOnNewRoom(b.onNewRoom)
	return b
}

func (b *Bridge) Gate() *Gate { return b.gate }

func (b *Bridge) Session() *chat.Session { return b.sess }

// PassThrough reports whether the bridge currently lets the host answer on
// its own. Set by a fallback-phrase query, cleared by the next custom one.
func (b *Bridge) PassThrough() bool { return b.passThrough.Load() }

func (b *Bridge) SetNotifier(n Notifier) { b.notify = n }
func (b *Bridge) SetRecorder(r Recorder) { b.record = r }

// Start binds the base context all turns derive from.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.baseCtx = ctx
}

// Stop cancels the in-flight turn, if any.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelTurn != nil {
		b.cancelTurn()
		b.cancelTurn = nil
	}
}

// HandleQuery routes one recognized user query. Fallback-phrase queries
// hand the conversation back to the host; everything else preempts the
// current turn and starts a new one.
func (b *Bridge) HandleQuery(query string) {
	cfg := b.cfg.Snapshot()

	if fp := cfg.Bridge.FallbackPhrase; fp != "" && strings.Contains(query, fp) {
		slog.Info("Fallback phrase, handing query to host", "query", query)
		b.passThrough.Store(true)
		b.Stop()
		return
	}
	b.passThrough.Store(false)

	if b.debounced(query, cfg.Bridge.DebounceWindow) {
		slog.Debug("Duplicate query debounced", "query", query)
		return
	}

	query = b.stripWakePhrase(query, cfg.Bridge.WakePattern)

	ctx := b.beginTurn()
	turnID := ulid.Make().String()

	go b.runTurn(ctx, turnID, cfg, query)
}

func (b *Bridge) onNewRoom() {
	slog.Info("New room, conversation history cleared")
	b.sess.Clear()
}

// debounced reports whether query is a duplicate UI callback artifact.
// A duplicate still updates the debounce clock.
func (b *Bridge) debounced(query, window string) bool {
	win, err := config.DurationOrDefault(window, config.DefaultBridgeDebounceWindow)
	if err != nil {
		win = 150 * time.Millisecond
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	dup := query == b.lastQuery && now.Sub(b.lastQueryAt) < win
	b.lastQuery = query
	b.lastQueryAt = now
	return dup
}

func (b *Bridge) stripWakePhrase(query, pattern string) string {
	if pattern == "" {
		return query
	}

	b.wakeMu.Lock()
	defer b.wakeMu.Unlock()

	if pattern != b.wakePattern {
		re, err := regexp.Compile(pattern)
		if err != nil {
			slog.Warn("Invalid wake pattern", "pattern", pattern, "error", err)
			re = nil
		}
		b.wakePattern = pattern
		b.wakeRe = re
	}
	if b.wakeRe == nil {
		return query
	}
	return strings.TrimSpace(b.wakeRe.ReplaceAllString(query, ""))
}

// beginTurn cancels the previous turn and derives the context of the next.
func (b *Bridge) beginTurn() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancelTurn != nil {
		b.cancelTurn()
	}
	base := b.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	b.cancelTurn = cancel
	return ctx
}

func (b *Bridge) runTurn(ctx context.Context, turnID string, cfg config.Config, query string) {
	started := b.now()
	slog.Info("Turn started", "turn", turnID, "query", query)

	err := b.gate.Do(ctx, func() error {
		return b.converse(ctx, turnID, cfg, query, started)
	})

	switch {
	case err == nil:
		slog.Info("Turn finished", "turn", turnID, "elapsed", b.now().Sub(started))
	case ctx.Err() != nil:
		slog.Debug("Turn cancelled", "turn", turnID)
	default:
		slog.Error("Turn failed", "turn", turnID, "error", err)
		if b.notify != nil && kerrors.UserVisible(err) {
			b.notify.Alert("backend turn failed", err)
		}
	}
}

type pendingCall struct {
	call   chat.ToolCall
	result chan chat.Message
}

// converse drives one gated turn: stream, chunked injection, concurrent
// tool dispatch, and continuation rounds seeded with the tool results.
func (b *Bridge) converse(ctx context.Context, turnID string, cfg config.Config, query string, started time.Time) error {
	streamer, err := b.newStreamer(cfg.Backend)
	if err != nil {
		b.synth.InjectInterim(err.Error())
		b.synth.InjectTerminal(query)
		b.recordTurn(turnID, query, "", nil, err, started)
		return err
	}

	defs := b.tools.Definitions()
	out := newChunker(cfg.Bridge.ChunkSize, b.synth.InjectInterim)

	// Appended here, after the gate opened: the acknowledgement that opened
	// it may have switched rooms and cleared the history, and this query
	// belongs to the new room.
	b.sess.Append(chat.UserMessage(query))

	var reply strings.Builder
	var allCalls []chat.ToolCall

	for {
		events := streamer.Stream(ctx, b.sess.Payload(cfg.Backend.SystemPrompt), defs)

		var roundText strings.Builder
		var roundCalls []chat.ToolCall
		var pending []pendingCall
		var done chat.Completed
		sawFirst := false

		for ev := range events {
			switch ev := ev.(type) {
			case chat.Content:
				if !sawFirst {
					sawFirst = true
					slog.Debug("First token", "turn", turnID, "latency", b.now().Sub(started))
				}
				roundText.WriteString(ev.Text)
				reply.WriteString(ev.Text)
				out.Push(ev.Text)

			case chat.ToolCallIntent:
				roundCalls = append(roundCalls, ev.Call)
				allCalls = append(allCalls, ev.Call)
				if cfg.Bridge.ShowToolCalls {
					out.Flush()
					b.synth.InjectInterim(fmt.Sprintf("`{tool: %s}`", ev.Call.Name))
				}
				pending = append(pending, b.dispatch(ctx, ev.Call))

			case chat.Completed:
				done = ev
			}
		}

		if ctx.Err() != nil {
			// Preempted. Keep the partial answer when it is usable and
			// nothing is outstanding; otherwise drop it.
			if roundText.Len() > 0 && len(pending) == 0 {
				b.sess.Append(chat.AssistantMessage(roundText.String(), roundCalls))
			}
			return ctx.Err()
		}

		if done.Err != nil {
			out.Flush()
			b.synth.InjectInterim(done.Err.Error())
			b.synth.InjectTerminal(query)
			b.recordTurn(turnID, query, reply.String(), allCalls, done.Err, started)
			return done.Err
		}

		out.Flush()
		b.sess.Append(chat.AssistantMessage(roundText.String(), roundCalls))

		if len(pending) == 0 {
			b.synth.InjectTerminal(query)
			b.recordTurn(turnID, query, reply.String(), allCalls, nil, started)
			return nil
		}

		for _, p := range pending {
			select {
			case msg := <-p.result:
				b.sess.Append(msg)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// dispatch starts tool execution immediately without blocking the text
// stream. The execution outlives a cancelled turn; its result is simply
// dropped when nobody is left to consume it.
func (b *Bridge) dispatch(ctx context.Context, call chat.ToolCall) pendingCall {
	p := pendingCall{call: call, result: make(chan chat.Message, 1)}
	execCtx := context.WithoutCancel(ctx)
	go func() {
		payload := b.tools.Execute(execCtx, call)
		p.result <- chat.ToolMessage(call.ID, call.Name, payload)
	}()
	return p
}

func (b *Bridge) recordTurn(turnID, query, reply string, calls []chat.ToolCall, err error, started time.Time) {
	if b.record == nil {
		return
	}
	rec := TurnRecord{
		ID:        turnID,
		Query:     query,
		Reply:     reply,
		ToolCalls: calls,
		Started:   started,
		Elapsed:   b.now().Sub(started),
	}
	if err != nil {
		rec.Err = err.Error()
	}
	b.record.Record(rec)
}

// chunker batches streamed text into fixed-size rune chunks, matching the
// host's own rendering cadence.
type chunker struct {
	size int
	buf  []rune
	emit func(string) bool
}

func newChunker(size int, emit func(string) bool) *chunker {
	if size <= 0 {
		size = config.DefaultBridgeChunkSize
	}
	return &chunker{size: size, emit: emit}
}

func (c *chunker) Push(text string) {
	for _, r := range text {
		c.buf = append(c.buf, r)
		if len(c.buf) >= c.size {
			c.Flush()
		}
	}
}

func (c *chunker) Flush() {
	if len(c.buf) == 0 {
		return
	}
	c.emit(string(c.buf))
	c.buf = c.buf[:0]
}
