package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// The launch tools shell out to the Android activity manager, which is the
// only launch surface available to a sidecar process on the host device.

type launchAppInput struct {
	Package string `json:"package"`
}

// LaunchAppTool starts an installed application by package name.
type LaunchAppTool struct {
	run func(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error)
}

func NewLaunchAppTool() *LaunchAppTool {
	return &LaunchAppTool{run: runCommand}
}

func (t *LaunchAppTool) Name() string { return "launch_app" }

func (t *LaunchAppTool) Description() string {
	return "Launch an installed application by its package name."
}

func (t *LaunchAppTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"package": map[string]interface{}{
				"type":        "string",
				"description": "Android package name, e.g. com.android.settings",
			},
		},
		"required": []string{"package"},
	}
}

func (t *LaunchAppTool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args launchAppInput
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	pkg := strings.TrimSpace(args.Package)
	if pkg == "" {
		return nil, fmt.Errorf("package is required")
	}

	_, stderr, code, err := t.run(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("launch %s failed: %s", pkg, strings.TrimSpace(string(stderr)))
	}

	return json.Marshal(map[string]string{"launched": pkg})
}

type launchURIInput struct {
	URI string `json:"uri"`
}

// LaunchURITool opens a URI through the system intent resolver.
type LaunchURITool struct {
	run func(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error)
}

func NewLaunchURITool() *LaunchURITool {
	return &LaunchURITool{run: runCommand}
}

func (t *LaunchURITool) Name() string { return "launch_uri" }

func (t *LaunchURITool) Description() string {
	return "Open a URI (web link, deep link) with the system default handler."
}

func (t *LaunchURITool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"uri": map[string]interface{}{
				"type":        "string",
				"description": "URI to open, e.g. https://example.com or app deep link",
			},
		},
		"required": []string{"uri"},
	}
}

func (t *LaunchURITool) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var args launchURIInput
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	uri := strings.TrimSpace(args.URI)
	if uri == "" {
		return nil, fmt.Errorf("uri is required")
	}

	_, stderr, code, err := t.run(ctx, "am", "start", "-a", "android.intent.action.VIEW", "-d", uri)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("open %s failed: %s", uri, strings.TrimSpace(string(stderr)))
	}

	return json.Marshal(map[string]string{"opened": uri})
}
