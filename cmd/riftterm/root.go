package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"riftterm/internal/config"
	"riftterm/internal/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFile    string
	seed       uint64
}

var globals globalFlags

var rootCmd = &cobra.Command{
	Use:   "riftterm",
	Short: "Simulated Rift Protocol mempool watcher terminal",
	Long: `riftterm replays a fictitious Rift Protocol mempool watcher as a live terminal.

Every run is an independent simulation:
  riftterm             full-screen terminal in the configured mode (procedural by default)
  riftterm run         procedural feed in a full-screen terminal
  riftterm scripted    the short pre-authored watcher output
  riftterm plain       procedural or scripted lines on stdout
  riftterm serve       Server-Sent Events over HTTP, one simulation per viewer`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConfigured,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globals.configPath, "config", "", "Config file (toml, yaml or json)")
	rootCmd.PersistentFlags().StringVar(&globals.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&globals.logFile, "log-file", "", "Write logs to a rotating file")
	rootCmd.PersistentFlags().Uint64Var(&globals.seed, "seed", 0, "Seed the random source for a reproducible run (0 = random)")

	rootCmd.AddCommand(
		runCmd,
		scriptedCmd,
		plainCmd,
		serveCmd,
		versionCmd,
	)
}

// loadConfig reads the config file and environment, then applies the
// global flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(globals.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = globals.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = globals.logFile
	}
	if flags.Changed("seed") {
		cfg.Seed = globals.seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the application logger. Without a log file, output goes
// to fallback; full-screen commands pass io.Discard.
func newLogger(cfg *config.Config, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	log, closer := logger.New(logger.Config{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Fallback:   fallback,
	})
	return log, closer, nil
}
