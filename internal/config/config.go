package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Backend    BackendConfig    `koanf:"backend"`
	Bridge     BridgeConfig     `koanf:"bridge"`
	Tools      ToolsConfig      `koanf:"tools"`
	Alerts     AlertsConfig     `koanf:"alerts"`
	Transcript TranscriptConfig `koanf:"transcript"`
}

type ServerConfig struct {
	LogLevel      string `koanf:"log_level"`
	WorkspacePath string `koanf:"workspace_path"`
}

// BackendConfig describes the external LLM endpoint the bridge substitutes
// for the host's own backend.
type BackendConfig struct {
	APIKey             string `koanf:"api_key"`
	BaseURL            string `koanf:"base_url"`
	Model              string `koanf:"model"`
	SystemPrompt       string `koanf:"system_prompt"`
	RequestTimeout     string `koanf:"request_timeout"`
	ProxyHost          string `koanf:"proxy_host"`
	ProxyPort          int    `koanf:"proxy_port"`
	PreconnectSchedule string `koanf:"preconnect_schedule"`
}

type BridgeConfig struct {
	FallbackPhrase  string `koanf:"fallback_phrase"`
	WakePattern     string `koanf:"wake_pattern"`
	DebounceWindow  string `koanf:"debounce_window"`
	ChunkSize       int    `koanf:"chunk_size"`
	ShowToolCalls   bool   `koanf:"show_tool_calls"`
	AckReadyTitle   string `koanf:"ack_ready_title"`
	AckParsingTitle string `koanf:"ack_parsing_title"`
}

type ToolsConfig struct {
	EnableShell      bool   `koanf:"enable_shell"`
	EnableLaunchApp  bool   `koanf:"enable_launch_app"`
	EnableLaunchURI  bool   `koanf:"enable_launch_uri"`
	EnableDeviceInfo bool   `koanf:"enable_device_info"`
	ShellTimeout     string `koanf:"shell_timeout"`
	ShellDenyByList  bool   `koanf:"shell_deny_by_list"`
	ShellKeywords    string `koanf:"shell_keywords"`
}

type AlertsConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BotToken string `koanf:"bot_token"`
	Channel  string `koanf:"channel"`
}

type TranscriptConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Path           string `koanf:"path"`
	RotateMaxBytes int64  `koanf:"rotate_max_bytes"`
}

const (
	DefaultServerLogLevel            = "info"
	DefaultBackendBaseURL            = "https://api.openai.com/v1"
	DefaultBackendModel              = "gpt-4o-mini"
	DefaultBackendRequestTimeout     = "120s"
	DefaultBackendPreconnectSchedule = "@every 5m"
	DefaultBridgeWakePattern         = "^小布小布[，,]?"
	DefaultBridgeDebounceWindow      = "150ms"
	DefaultBridgeChunkSize           = 50
	DefaultBridgeAckReadyTitle       = "好的，已收到"
	DefaultBridgeAckParsingTitle     = "开始解析"
	DefaultToolsShellTimeout         = "15s"
	DefaultTranscriptRotateMaxBytes  = 10 * 1024 * 1024
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":            DefaultServerLogLevel,
		"server.workspace_path":       filepath.Join(os.Getenv("HOME"), ".kakehashi"),
		"backend.base_url":            DefaultBackendBaseURL,
		"backend.model":               DefaultBackendModel,
		"backend.request_timeout":     DefaultBackendRequestTimeout,
		"backend.preconnect_schedule": DefaultBackendPreconnectSchedule,
		"bridge.wake_pattern":         DefaultBridgeWakePattern,
		"bridge.debounce_window":      DefaultBridgeDebounceWindow,
		"bridge.chunk_size":           DefaultBridgeChunkSize,
		"bridge.ack_ready_title":      DefaultBridgeAckReadyTitle,
		"bridge.ack_parsing_title":    DefaultBridgeAckParsingTitle,
		"tools.enable_device_info":    true,
		"tools.enable_launch_app":     true,
		"tools.enable_launch_uri":     true,
		"tools.enable_shell":          false,
		"tools.shell_timeout":         DefaultToolsShellTimeout,
		"tools.shell_deny_by_list":    true,
		"transcript.enabled":          true,
		"transcript.rotate_max_bytes": int64(DefaultTranscriptRotateMaxBytes),
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".kakehashi", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("KAKEHASHI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "KAKEHASHI_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if cfg.Backend.APIKey == "" {
		cfg.Backend.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Transcript.Path == "" {
		cfg.Transcript.Path = filepath.Join(cfg.Server.WorkspacePath, "transcript.jsonl")
	}

	return &cfg, nil
}
