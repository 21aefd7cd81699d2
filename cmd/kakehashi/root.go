package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/kakehashi/internal/config"
	"github.com/harunnryd/kakehashi/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kakehashi",
	Short: "Streaming protocol bridge for a voice-assistant host",
	Long: `Kakehashi intercepts a voice assistant's internal message traffic,
substitutes its backend with an OpenAI-compatible endpoint, and re-synthesizes
the host's wire format so streamed answers render natively.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kakehashi/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend.base_url", config.DefaultBackendBaseURL, "OpenAI-compatible base URL")
	rootCmd.PersistentFlags().String("backend.model", config.DefaultBackendModel, "model name")
}
