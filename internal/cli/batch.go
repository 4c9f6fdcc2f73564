package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/camsync/internal/batch"
	"github.com/ManuGH/camsync/internal/config"
	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/log"
	"github.com/ManuGH/camsync/internal/metrics"
	"github.com/ManuGH/camsync/internal/roster"
	"github.com/ManuGH/camsync/internal/watch"
)

type batchRun func(ctx context.Context, rows []roster.Row) (*batch.Summary, error)

// runRoster reads the roster and runs fn once, or on every roster change when
// watchMode is set. A roster that cannot be read is fatal outside watch mode.
func runRoster(ctx context.Context, out io.Writer, cfg config.Config, watchMode bool, fn batchRun) error {
	once := func(ctx context.Context) error {
		rows, err := roster.Read(cfg.Roster)
		if err != nil {
			return err
		}
		summary, err := fn(ctx, rows)
		if summary != nil {
			printSummary(out, summary)
		}
		if merr := metrics.WriteTextfile(cfg.Metrics.Textfile); merr != nil {
			logger := log.WithComponent("cli")
			logger.Warn().Err(merr).Str("event", "metrics.write_failed").Msg("metrics textfile not written")
		}
		return err
	}
	if !watchMode {
		return once(ctx)
	}
	return watch.New(cfg.Roster, cfg.Watch.Debounce, log.WithComponent("watch")).Run(ctx, once)
}

func printSummary(w io.Writer, s *batch.Summary) {
	fmt.Fprintf(w, "%s run %s: completed %d, failed %d, skipped %d\n",
		s.Stage, s.RunID, len(s.Completed), len(s.Failed), len(s.Skipped))
	if len(s.Failed) > 0 {
		failed := append([]string(nil), s.Failed...)
		sort.Strings(failed)
		fmt.Fprintf(w, "  failed: %s\n", strings.Join(failed, ", "))
	}
}

func newSyncCommand(g *globalFlags) *cobra.Command {
	var (
		sessionID string
		visualize bool
		watchMode bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Normalize frame rates and align every camera of each session",
		Long: `Sync resamples wide-angle cameras to the target frame rate and aligns all
cameras of a session on a common timeline using their audio tracks.

Without --session-id every eligible roster row not yet listed in the sync
ledger is processed; failures are recorded and never abort the batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.resolve(cmd, sessionID == "")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, runtimeOptions{visualize: visualize})
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			if sessionID != "" {
				offset, err := rt.driver.SyncSession(ctx, sessionID)
				if err != nil {
					return err
				}
				if offset != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "session %s synced, mother-baby offset %d ms\n", sessionID, *offset)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "session %s synced\n", sessionID)
				}
				return nil
			}
			return runRoster(ctx, cmd.OutOrStdout(), cfg, watchMode, rt.driver.RunSync)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "sync a single session, ignoring roster and ledgers")
	cmd.Flags().BoolVar(&visualize, "visualize", false, "render a stacked preview of each aligned pair")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "rerun whenever the roster changes")
	cmd.MarkFlagsMutuallyExclusive("session-id", "watch")
	return cmd
}

func newCutCommand(g *globalFlags) *cobra.Command {
	var (
		sessionID string
		spans     = make(map[string]*string, len(session.PhaseNames))
		watchMode bool
	)
	cmd := &cobra.Command{
		Use:   "cut",
		Short: "Cut synced cameras into phases and render composites",
		Long: `Cut trims every synced camera into the annotated phases and renders the
mother/baby stack and the four-camera grid for each phase.

Phases come from the roster; with --session-id they are given as flags in
MM:SS-MM:SS or HH:MM:SS-HH:MM:SS form.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.resolve(cmd, sessionID == "")
			if err != nil {
				return err
			}
			var phases []session.Phase
			if sessionID != "" {
				for _, name := range session.PhaseNames {
					p, err := session.ParsePhase(name, *spans[name])
					if err != nil {
						return fmt.Errorf("%w: --%s: %w", errUsage, name, err)
					}
					phases = append(phases, p)
				}
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, runtimeOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			if sessionID != "" {
				if err := rt.driver.CutSession(ctx, sessionID, phases); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "session %s cut\n", sessionID)
				return nil
			}
			return runRoster(ctx, cmd.OutOrStdout(), cfg, watchMode, rt.driver.RunCut)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "cut a single session with the phases given as flags")
	for _, name := range session.PhaseNames {
		spans[name] = cmd.Flags().String(name, "", name+" phase as start-end")
	}
	cmd.Flags().BoolVar(&watchMode, "watch", false, "rerun whenever the roster changes")
	cmd.MarkFlagsRequiredTogether(append([]string{"session-id"}, session.PhaseNames...)...)
	cmd.MarkFlagsMutuallyExclusive("session-id", "watch")
	return cmd
}

func newVisualizeCommand(g *globalFlags) *cobra.Command {
	var (
		mode      string
		sessionID string
	)
	cmd := &cobra.Command{
		Use:   "visualize",
		Short: "Render phase stacks from existing cuts, or session thumbnails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mode != "stack" && mode != "thumbnail" {
				return fmt.Errorf("%w: --mode must be stack or thumbnail, got %q", errUsage, mode)
			}
			cfg, err := g.resolve(cmd, false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, cfg, runtimeOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()
			return rt.driver.Visualize(ctx, mode, sessionID)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "stack", "stack or thumbnail")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "limit to one session")
	return cmd
}
