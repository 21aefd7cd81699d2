package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/harunnryd/kakehashi/internal/bridge"
	"github.com/harunnryd/kakehashi/internal/chat"
	"github.com/harunnryd/kakehashi/internal/config"
	"github.com/harunnryd/kakehashi/internal/host"
	"github.com/harunnryd/kakehashi/internal/notify"
	"github.com/harunnryd/kakehashi/internal/tool"
	"github.com/harunnryd/kakehashi/internal/transcript"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bridge on the stdio host channel",
	Long: `Runs the bridge as a long-lived sidecar: host messages arrive as JSON
lines on stdin, verdicts and synthesized frames leave on stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		return runBridge(cmd.Context(), *cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBridge(parent context.Context, cfg config.Config) error {
	release, err := acquireInstanceLock(cfg.Server.WorkspacePath)
	if err != nil {
		return err
	}
	defer release()

	signals := NewSignalHandler(parent)
	signals.Start()
	defer signals.Stop()
	ctx := signals.Context()

	holder := config.NewHolder(cfg)

	channel := host.NewStdioChannel(os.Stdin, os.Stdout)
	synth := host.NewSynthesizer(host.NewTracker(), host.NewInjector(channel))
	runner := tool.NewRunner(tool.DefaultRegistry(holder), holder)

	b := bridge.New(holder, synth, runner)
	if cfg.Alerts.Enabled {
		b.SetNotifier(notify.NewSlackAlerter(cfg.Alerts))
	}
	if cfg.Transcript.Enabled {
		writer, err := transcript.NewWriter(cfg.Transcript)
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		b.SetRecorder(writer)
	}

	interceptor := bridge.NewInterceptor(holder, synth.Tracker(), b.Gate(), b.PassThrough)
	channel.Subscribe(interceptor.Handle)
	channel.OnQuery(b.HandleQuery)

	b.Start(ctx)
	defer b.Stop()

	stopPreconnect, err := startPreconnect(ctx, holder)
	if err != nil {
		slog.Warn("Pre-connect disabled", "error", err)
	} else {
		defer stopPreconnect()
	}

	slog.Info("Bridge running", "model", cfg.Backend.Model, "base_url", cfg.Backend.BaseURL)

	if err := channel.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// acquireInstanceLock guarantees a single bridge per workspace. Two bridges
// on one host channel would corrupt each other's sequence state.
func acquireInstanceLock(workspacePath string) (func(), error) {
	if err := os.MkdirAll(workspacePath, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	lockPath := filepath.Join(workspacePath, "kakehashi.lock")
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance is already running (lock %s)", lockPath)
	}

	slog.Info("Instance lock acquired", "path", lockPath)
	return func() {
		if err := fileLock.Unlock(); err != nil {
			slog.Warn("Failed to release instance lock", "error", err)
		}
	}, nil
}

// startPreconnect schedules periodic connection warming against the
// backend so the first turn after an idle stretch does not pay the
// handshake cost.
func startPreconnect(ctx context.Context, holder *config.Holder) (func(), error) {
	schedule := holder.Snapshot().Backend.PreconnectSchedule
	if schedule == "" {
		return func() {}, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		client, err := chat.NewClient(holder.Snapshot().Backend)
		if err != nil {
			slog.Warn("Pre-connect client build failed", "error", err)
			return
		}
		client.Preconnect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("parse pre-connect schedule %q: %w", schedule, err)
	}

	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
