package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/kakehashi/internal/bridge"
	"github.com/harunnryd/kakehashi/internal/chat"
	"github.com/harunnryd/kakehashi/internal/config"
	"github.com/natefinch/atomic"
)

// Writer persists finished turns as JSON lines, one file, rotated by size.
// A sibling index.json tracks totals and is replaced atomically so a crash
// mid-write never leaves it torn.
type Writer struct {
	path           string
	rotateMaxBytes int64

	mu    sync.Mutex
	index index
}

type index struct {
	Turns      int    `json:"turns"`
	LastTurnID string `json:"last_turn_id"`
	Rotations  int    `json:"rotations"`
	UpdatedAt  string `json:"updated_at"`
}

type entry struct {
	ID        string          `json:"id"`
	Time      string          `json:"time"`
	Query     string          `json:"query"`
	Reply     string          `json:"reply"`
	ToolCalls []chat.ToolCall `json:"tool_calls,omitempty"`
	Error     string          `json:"error,omitempty"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

func NewWriter(cfg config.TranscriptConfig) (*Writer, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("transcript path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	rotate := cfg.RotateMaxBytes
	if rotate <= 0 {
		rotate = config.DefaultTranscriptRotateMaxBytes
	}

	w := &Writer{path: cfg.Path, rotateMaxBytes: rotate}
	w.loadIndex()
	return w, nil
}

// Record implements the bridge recorder. Failures are logged, never
// propagated: losing a transcript line must not affect the turn.
func (w *Writer) Record(rec bridge.TurnRecord) {
	line, err := json.Marshal(entry{
		ID:        rec.ID,
		Time:      rec.Started.UTC().Format(time.RFC3339),
		Query:     rec.Query,
		Reply:     rec.Reply,
		ToolCalls: rec.ToolCalls,
		Error:     rec.Err,
		ElapsedMS: rec.Elapsed.Milliseconds(),
	})
	if err != nil {
		slog.Error("Failed to encode transcript entry", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.append(line); err != nil {
		slog.Error("Failed to append transcript", "error", err)
		return
	}

	w.index.Turns++
	w.index.LastTurnID = rec.ID
	w.index.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := w.saveIndex(); err != nil {
		slog.Warn("Failed to update transcript index", "error", err)
	}
}

func (w *Writer) append(line []byte) error {
	if err := w.checkAndRotate(); err != nil {
		slog.Warn("Failed to rotate transcript", "error", err)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return err
	}
	if _, err := f.WriteString("\n"); err != nil {
		return err
	}
	return f.Sync()
}

func (w *Writer) checkAndRotate() error {
	info, err := os.Stat(w.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < w.rotateMaxBytes {
		return nil
	}

	slog.Info("Rotating transcript", "size", info.Size())

	timestamp := time.Now().Format("20060102150405")
	backupPath := fmt.Sprintf("%s.%s.bak", w.path, timestamp)
	if err := os.Rename(w.path, backupPath); err != nil {
		return fmt.Errorf("rename transcript: %w", err)
	}
	w.index.Rotations++
	return nil
}

func (w *Writer) indexPath() string {
	return filepath.Join(filepath.Dir(w.path), "index.json")
}

func (w *Writer) loadIndex() {
	data, err := os.ReadFile(w.indexPath())
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &w.index); err != nil {
		slog.Warn("Ignoring unreadable transcript index", "error", err)
		w.index = index{}
	}
}

func (w *Writer) saveIndex() error {
	data, err := json.MarshalIndent(w.index, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(w.indexPath(), bytes.NewReader(data))
}
