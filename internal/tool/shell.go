package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"
	"github.com/harunnryd/kakehashi/internal/config"
)

type shellInput struct {
	Command string `json:"command"`
}

type shellResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// ShellTool executes one command line on the device. The keyword list acts
// as a denylist or an allowlist depending on configuration, checked against
// the raw command text before anything runs.
type ShellTool struct {
	cfg *config.Holder

	run func(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error)
}

func NewShellTool(cfg *config.Holder) *ShellTool {
	return &ShellTool{cfg: cfg, run: runCommand}
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return "Execute a shell command on the device and return its output."
}

func (t *ShellTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Command line to execute",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ShellTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args shellInput
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	command := strings.TrimSpace(args.Command)
	if command == "" {
		return nil, fmt.Errorf("command is required")
	}

	cfg := t.cfg.Snapshot().Tools
	if err := checkKeywords(command, cfg); err != nil {
		return nil, err
	}

	parts, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("command is empty after parsing")
	}

	timeout, err := config.DurationOrDefault(cfg.ShellTimeout, config.DefaultToolsShellTimeout)
	if err != nil {
		return nil, fmt.Errorf("shell timeout: %w", err)
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, code, err := t.run(execCtx, parts[0], parts[1:]...)
	if err != nil {
		return nil, err
	}

	return json.Marshal(shellResult{
		Stdout:   strings.TrimRight(string(stdout), "\n"),
		Stderr:   strings.TrimRight(string(stderr), "\n"),
		ExitCode: code,
	})
}

func checkKeywords(command string, cfg config.ToolsConfig) error {
	keywords := splitKeywords(cfg.ShellKeywords)
	if len(keywords) == 0 {
		return nil
	}

	matched := ""
	for _, kw := range keywords {
		if strings.Contains(command, kw) {
			matched = kw
			break
		}
	}

	if cfg.ShellDenyByList {
		if matched != "" {
			return fmt.Errorf("command rejected, contains blocked keyword %q", matched)
		}
		return nil
	}
	if matched == "" {
		return fmt.Errorf("command rejected, matches no allowed keyword")
	}
	return nil
}

func splitKeywords(raw string) []string {
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, nil, 0, fmt.Errorf("run %s: %w", name, err)
		}
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}
