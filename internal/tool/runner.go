package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/kakehashi/internal/chat"
	"github.com/harunnryd/kakehashi/internal/config"
)

// Runner executes backend-requested tool calls against the registry. Every
// failure mode folds into the returned payload: the backend gets a JSON
// error object, never a broken turn.
type Runner struct {
	registry *Registry
	cfg      *config.Holder
}

func NewRunner(registry *Registry, cfg *config.Holder) *Runner {
	return &Runner{registry: registry, cfg: cfg}
}

// DefaultRegistry builds a registry holding every built-in tool.
func DefaultRegistry(cfg *config.Holder) *Registry {
	r := NewRegistry()
	r.Register(NewShellTool(cfg))
	r.Register(NewDeviceInfoTool())
	r.Register(NewLaunchAppTool())
	r.Register(NewLaunchURITool())
	return r
}

// Definitions advertises the currently enabled tools.
func (r *Runner) Definitions() []chat.ToolDef {
	cfg := r.cfg.Snapshot().Tools
	return r.registry.Definitions(func(name string) bool {
		return enabled(cfg, name)
	})
}

// Execute runs one tool call to completion and returns its payload.
func (r *Runner) Execute(ctx context.Context, call chat.ToolCall) (payload string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Tool panicked", "tool", call.Name, "panic", rec)
			payload = errorPayload(fmt.Errorf("tool %s panicked: %v", call.Name, rec))
		}
	}()

	t, ok := r.registry.Get(call.Name)
	if !ok {
		slog.Warn("Unknown tool requested", "tool", call.Name)
		return errorPayload(fmt.Errorf("tool not found: %s", call.Name))
	}
	if !enabled(r.cfg.Snapshot().Tools, call.Name) {
		return errorPayload(fmt.Errorf("tool disabled: %s", call.Name))
	}

	start := time.Now()
	slog.Info("Executing tool", "tool", call.Name, "call_id", call.ID)

	result, err := t.Execute(ctx, json.RawMessage(call.Arguments))
	duration := time.Since(start)
	if err != nil {
		slog.Error("Tool execution failed", "tool", call.Name, "error", err, "duration", duration)
		return errorPayload(err)
	}

	slog.Info("Tool execution success", "tool", call.Name, "duration", duration)
	return string(result)
}

func enabled(cfg config.ToolsConfig, name string) bool {
	switch name {
	case "shell":
		return cfg.EnableShell
	case "launch_app":
		return cfg.EnableLaunchApp
	case "launch_uri":
		return cfg.EnableLaunchURI
	case "device_info":
		return cfg.EnableDeviceInfo
	default:
		return false
	}
}

func errorPayload(err error) string {
	payload, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error":"internal error"}`
	}
	return string(payload)
}
