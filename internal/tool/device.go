package tool

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"time"
)

// DeviceInfoTool reports basic facts about the device the bridge runs on.
type DeviceInfoTool struct {
	now func() time.Time
}

func NewDeviceInfoTool() *DeviceInfoTool {
	return &DeviceInfoTool{now: time.Now}
}

func (t *DeviceInfoTool) Name() string { return "device_info" }

func (t *DeviceInfoTool) Description() string {
	return "Return device information: OS, architecture, hostname, CPU count and local time."
}

func (t *DeviceInfoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *DeviceInfoTool) Execute(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	hostname, _ := os.Hostname()
	return json.Marshal(map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"hostname":   hostname,
		"cpus":       runtime.NumCPU(),
		"local_time": t.now().Format(time.RFC3339),
	})
}
