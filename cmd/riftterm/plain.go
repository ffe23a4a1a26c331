package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"riftterm/internal/printer"
	"riftterm/internal/session"
)

type plainConfig struct {
	mode       string
	noColor    bool
	showPhases bool
}

var plainCfg plainConfig

var plainCmd = &cobra.Command{
	Use:   "plain",
	Short: "Print the simulated feed to stdout",
	Long: `Print the simulated feed to stdout, one "[timestamp] text" row per line.

Colours are disabled automatically when stdout is not a terminal.
Logs go to stderr unless --log-file is set.`,
	Args: cobra.NoArgs,
	RunE: runPlain,
}

func init() {
	plainCmd.Flags().StringVar(&plainCfg.mode, "mode", "", "Generator mode (procedural, scripted); defaults to the configured mode")
	plainCmd.Flags().BoolVar(&plainCfg.noColor, "no-color", false, "Disable colored output")
	plainCmd.Flags().BoolVar(&plainCfg.showPhases, "phases", false, "Print phase transitions")
}

func runPlain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	modeName := cfg.Mode
	if plainCfg.mode != "" {
		modeName = plainCfg.mode
	}
	mode, err := session.ParseMode(modeName)
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := session.Start(ctx, sessionOptions(cfg, mode, log))
	if err != nil {
		return err
	}
	defer s.Stop()

	noColor := plainCfg.noColor || !isatty.IsTerminal(os.Stdout.Fd())
	p := printer.New(cmd.OutOrStdout(), printer.NewStyle(noColor), plainCfg.showPhases)
	totals, err := p.Stream(ctx, s.Events())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Debug("feed finished", "detections", totals.Detections, "lines", totals.Lines)
	return nil
}
