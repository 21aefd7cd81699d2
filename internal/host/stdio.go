package host

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Line kinds of the sidecar wire protocol. The in-process hook forwards
// host traffic as JSON lines and applies what comes back: a verdict per
// forwarded message, and injected frames as they are synthesized.
const (
	lineMessage = "message"
	lineQuery   = "query"
	lineVerdict = "verdict"
	lineInject  = "inject"
)

type inboundLine struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Text    string          `json:"text,omitempty"`
}

type outboundLine struct {
	Kind    string          `json:"kind"`
	Pass    *bool           `json:"pass,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StdioChannel speaks the sidecar protocol over a line-based byte pipe,
// usually stdin/stdout. It implements both Source and Sink.
type StdioChannel struct {
	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
	handler func(raw []byte) Verdict
	onQuery func(text string)
}

func NewStdioChannel(in io.Reader, out io.Writer) *StdioChannel {
	return &StdioChannel{in: in, out: out}
}

func (c *StdioChannel) Subscribe(handler func(raw []byte) Verdict) {
	c.handler = handler
}

// OnQuery registers the callback for recognized user queries forwarded by
// the hook's ASR tap.
func (c *StdioChannel) OnQuery(fn func(text string)) {
	c.onQuery = fn
}

// Inject implements Sink: the frame goes out as an inject line.
func (c *StdioChannel) Inject(frame []byte) bool {
	err := c.writeLine(outboundLine{Kind: lineInject, Payload: frame})
	if err != nil {
		slog.Error("Failed to write inject line", "error", err)
		return false
	}
	return true
}

// Run consumes inbound lines until the pipe closes or ctx is cancelled.
// Malformed lines are logged and skipped; the channel stays up.
func (c *StdioChannel) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line inboundLine
		if err := json.Unmarshal(raw, &line); err != nil {
			slog.Warn("Skipping malformed channel line", "error", err)
			continue
		}

		switch line.Kind {
		case lineMessage:
			c.handleMessage(line.Payload)
		case lineQuery:
			if c.onQuery != nil {
				c.onQuery(line.Text)
			}
		default:
			slog.Warn("Unknown channel line kind", "kind", line.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read channel: %w", err)
	}
	return ctx.Err()
}

func (c *StdioChannel) handleMessage(payload json.RawMessage) {
	verdict := VerdictPass
	if c.handler != nil {
		verdict = c.handler(payload)
	}

	pass := verdict == VerdictPass
	if err := c.writeLine(outboundLine{Kind: lineVerdict, Pass: &pass}); err != nil {
		slog.Error("Failed to write verdict line", "error", err)
	}
}

func (c *StdioChannel) writeLine(line outboundLine) error {
	data, err := json.Marshal(line)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.out.Write(data); err != nil {
		return err
	}
	_, err = c.out.Write([]byte{'\n'})
	return err
}
