package chat

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	kerrors "github.com/harunnryd/kakehashi/internal/errors"
	"github.com/sashabaranov/go-openai"
)

const (
	ssePrefix   = "data:"
	sseDone     = "[DONE]"
	maxLineSize = 1 << 20
)

// decoder turns the server-sent-event byte stream into chat events.
// Content fragments are emitted the moment they are decoded; tool-call
// fragments go through the assembler. Lines that fail to parse are not
// fatal: they accumulate as raw payload and only surface as an error at
// end of stream, which separates a misconfigured endpoint from ordinary
// stream noise.
type decoder struct {
	assembler assembler
	raw       strings.Builder
}

// run reads r until EOF or emit refuses delivery. The returned error is
// the terminal condition to report in the Completed event.
func (d *decoder) run(r io.Reader, emit func(Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "" || strings.HasPrefix(line, ":"):
			continue

		case strings.HasPrefix(line, ssePrefix):
			payload := strings.TrimSpace(line[len(ssePrefix):])
			if payload == sseDone {
				return d.finish(nil)
			}

			var chunk openai.ChatCompletionStreamResponse
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				slog.Debug("Unparseable data line", "payload", payload)
				d.keepRaw(payload)
				continue
			}
			if !d.handleChunk(chunk, emit) {
				return kerrors.ErrTurnCancelled
			}

		default:
			d.keepRaw(line)
		}
	}

	return d.finish(scanner.Err())
}

func (d *decoder) handleChunk(chunk openai.ChatCompletionStreamResponse, emit func(Event) bool) bool {
	if len(chunk.Choices) == 0 {
		return true
	}

	delta := chunk.Choices[0].Delta
	if delta.Content != "" {
		if !emit(Content{Text: delta.Content}) {
			return false
		}
	}
	for _, fragment := range delta.ToolCalls {
		if completed := d.assembler.push(fragment); completed != nil {
			if !emit(ToolCallIntent{Call: *completed}) {
				return false
			}
		}
	}
	return true
}

func (d *decoder) keepRaw(line string) {
	d.raw.WriteString(line)
	d.raw.WriteString("\n")
}

// finish decides the terminal condition. A transport error wins; failing
// that, leftover raw payload means the endpoint never spoke the protocol.
func (d *decoder) finish(cause error) error {
	if cause != nil {
		return kerrors.Transport("stream read failed: %v", cause)
	}
	if d.raw.Len() > 0 {
		return kerrors.Decode("unparseable stream payload, check the configured base URL, raw data:\n`%s`", strings.TrimSpace(d.raw.String()))
	}
	return nil
}
