package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commandCapture struct {
	name string
	args []string
	code int
	err  error
}

func (c *commandCapture) run(_ context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	c.name = name
	c.args = args
	return nil, []byte("denied"), c.code, c.err
}

func TestLaunchAppBuildsMonkeyInvocation(t *testing.T) {
	capture := &commandCapture{}
	tool := NewLaunchAppTool()
	tool.run = capture.run

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"package":"com.android.settings"}`))
	require.NoError(t, err)

	assert.Equal(t, "monkey", capture.name)
	assert.Equal(t, []string{"-p", "com.android.settings", "-c", "android.intent.category.LAUNCHER", "1"}, capture.args)
	assert.JSONEq(t, `{"launched":"com.android.settings"}`, string(raw))
}

func TestLaunchAppRequiresPackage(t *testing.T) {
	tool := NewLaunchAppTool()
	tool.run = (&commandCapture{}).run

	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestLaunchAppReportsFailure(t *testing.T) {
	tool := NewLaunchAppTool()
	tool.run = (&commandCapture{code: 1}).run

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"package":"com.missing"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "com.missing")
}

func TestLaunchURIBuildsViewIntent(t *testing.T) {
	capture := &commandCapture{}
	tool := NewLaunchURITool()
	tool.run = capture.run

	raw, err := tool.Execute(context.Background(), json.RawMessage(`{"uri":"https://example.com"}`))
	require.NoError(t, err)

	assert.Equal(t, "am", capture.name)
	assert.Equal(t, []string{"start", "-a", "android.intent.action.VIEW", "-d", "https://example.com"}, capture.args)
	assert.JSONEq(t, `{"opened":"https://example.com"}`, string(raw))
}

func TestLaunchURIRequiresURI(t *testing.T) {
	tool := NewLaunchURITool()
	tool.run = (&commandCapture{}).run

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"uri":" "}`))
	assert.Error(t, err)
}

func TestDeviceInfoReportsRuntimeFacts(t *testing.T) {
	raw, err := NewDeviceInfoTool().Execute(context.Background(), nil)
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.NotEmpty(t, info["os"])
	assert.NotEmpty(t, info["arch"])
	assert.NotEmpty(t, info["local_time"])
	assert.Greater(t, info["cpus"], float64(0))
}
