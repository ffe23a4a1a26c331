package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"riftterm/internal/config"
	"riftterm/internal/session"
	"riftterm/internal/tui"
)

const (
	proceduralTitle  = "rift-protocol — mempool monitor"
	proceduralFooter = "Listening for mempool transactions..."
	scriptedTitle    = "rift-protocol — watcher output"
	scriptedFooter   = "Awaiting next batch..."
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Show the procedural mempool feed in a full-screen terminal",
	Long: `Show the procedural mempool feed in a full-screen terminal.

Keys:
  p       pause / resume
  r       restart with a fresh simulation
  tab     switch focus between the feed and the detections table
  q       quit`,
	Args: cobra.NoArgs,
	RunE: runProcedural,
}

var scriptedCmd = &cobra.Command{
	Use:   "scripted",
	Short: "Show the pre-authored watcher output in a full-screen terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTUI(cmd, session.ModeScripted)
	},
}

func runProcedural(cmd *cobra.Command, _ []string) error {
	return runTUI(cmd, session.ModeProcedural)
}

// runConfigured starts the terminal in the configured mode; it backs the
// bare root command.
func runConfigured(cmd *cobra.Command, _ []string) error {
	return runTUI(cmd, "")
}

// runTUI shows the full-screen terminal. An empty mode means cfg.Mode.
func runTUI(cmd *cobra.Command, mode session.Mode) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if mode, err = resolveMode(cfg, mode); err != nil {
		return err
	}
	log, closer, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := tui.SessionStarter(func() (*session.Session, error) {
		return session.Start(ctx, sessionOptions(cfg, mode, log))
	})
	log.Info("terminal starting", "mode", string(mode), "seed", cfg.Seed)
	return tui.Run(start, viewConfig(cfg, mode))
}

// resolveMode returns mode, or the configured mode when mode is empty.
func resolveMode(cfg *config.Config, mode session.Mode) (session.Mode, error) {
	if mode != "" {
		return mode, nil
	}
	return session.ParseMode(cfg.Mode)
}

// viewConfig frames the terminal for mode.
func viewConfig(cfg *config.Config, mode session.Mode) tui.Config {
	if mode == session.ModeScripted {
		return tui.Config{
			Title:    scriptedTitle,
			Footer:   scriptedFooter,
			Mode:     mode,
			Capacity: cfg.Simulation.Capacity,
		}
	}
	return tui.Config{
		Title:         proceduralTitle,
		Footer:        proceduralFooter,
		Mode:          mode,
		MaxDetections: cfg.Simulation.MaxDetections,
		Capacity:      cfg.Simulation.Capacity,
	}
}

// sessionOptions builds session options for one run. A fixed seed yields the
// same transcript on every restart.
func sessionOptions(cfg *config.Config, mode session.Mode, log *slog.Logger) session.Options {
	return session.Options{
		Mode:       mode,
		Simulation: cfg.Simulation.Generator(),
		Source:     cfg.Source(),
		Logger:     log,
	}
}
