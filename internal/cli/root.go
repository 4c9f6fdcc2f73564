// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package cli wires the camsync commands to the pipeline.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/camsync/internal/config"
	"github.com/ManuGH/camsync/internal/log"
	"github.com/ManuGH/camsync/internal/version"
)

// errUsage marks a missing or contradictory flag.
var errUsage = errors.New("usage error")

type globalFlags struct {
	configPath  string
	dbDir       string
	roster      string
	logLevel    string
	concurrency int
	ledger      string
	ffmpeg      string
}

// NewRootCommand builds the camsync command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "camsync",
		Short:         "Synchronize, segment and composite still-face session recordings",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// safe defaults until the configuration is resolved
			log.Configure(log.Config{Level: "info", Output: cmd.ErrOrStderr(), Version: version.Version})
		},
	}
	root.SetVersionTemplate(version.String() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&g.dbDir, "db-dir", "", "database directory holding Sessions/ and the ledgers")
	pf.StringVar(&g.roster, "roster", "", "session roster (.xlsx or .csv)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.IntVar(&g.concurrency, "concurrency", 0, "sessions processed in parallel")
	pf.StringVar(&g.ledger, "ledger", "", "ledger backend (file or sqlite)")
	pf.StringVar(&g.ffmpeg, "ffmpeg", "", "ffmpeg binary")

	root.AddCommand(
		newSyncCommand(g),
		newCutCommand(g),
		newVisualizeCommand(g),
		newReportCommand(g),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

// overrides collects the persistent flags the user actually set.
func (g *globalFlags) overrides(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	flags := cmd.Flags()
	if flags.Changed("db-dir") {
		ov.DBDir = &g.dbDir
	}
	if flags.Changed("roster") {
		ov.Roster = &g.roster
	}
	if flags.Changed("log-level") {
		ov.LogLevel = &g.logLevel
	}
	if flags.Changed("concurrency") {
		ov.Concurrency = &g.concurrency
	}
	if flags.Changed("ledger") {
		ov.Ledger = &g.ledger
	}
	if flags.Changed("ffmpeg") {
		ov.FFmpegBin = &g.ffmpeg
	}
	return ov
}

// resolve loads the configuration and reconfigures logging from it.
func (g *globalFlags) resolve(cmd *cobra.Command, needRoster bool) (config.Config, error) {
	cfg, err := config.NewLoader(g.configPath, version.Version).Load(g.overrides(cmd))
	if err != nil {
		return cfg, err
	}
	if cfg.DBDir == "" {
		return cfg, fmt.Errorf("%w: --db-dir (or %sDB_DIR) is required", errUsage, config.EnvPrefix)
	}
	if needRoster && cfg.Roster == "" {
		return cfg, fmt.Errorf("%w: --roster (or %sROSTER) is required", errUsage, config.EnvPrefix)
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Output: cmd.ErrOrStderr(), Version: cfg.Version})
	logger := log.WithComponent("cli")
	logger.Debug().
		Str("event", "config.loaded").
		Str("db_dir", cfg.DBDir).
		Str("ledger", cfg.Ledger.Backend).
		Int("concurrency", cfg.Concurrency).
		Msg("configuration resolved")
	return cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
