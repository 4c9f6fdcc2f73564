package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ManuGH/camsync/internal/ledger"
	"github.com/ManuGH/camsync/internal/log"
	"github.com/ManuGH/camsync/internal/report"
	"github.com/ManuGH/camsync/internal/roster"
)

func newReportCommand(g *globalFlags) *cobra.Command {
	var (
		out  string
		plot string
		bins int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise ledger progress, offsets and missing recordings",
		Long: `Report correlates the roster with both ledgers, prints progress and
offset statistics, and writes the missing-recordings CSV (next to the roster
unless --out is given). --plot renders a histogram of the recorded offsets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.resolve(cmd, true)
			if err != nil {
				return err
			}
			logger := log.WithComponent("report")

			rows, err := roster.Read(cfg.Roster)
			if err != nil {
				return err
			}
			syncL, err := ledger.Open(cfg.Ledger.Backend, cfg.DBDir, ledger.StageSync)
			if err != nil {
				return err
			}
			defer func() { _ = syncL.Close() }()
			cutL, err := ledger.Open(cfg.Ledger.Backend, cfg.DBDir, ledger.StageCut)
			if err != nil {
				return err
			}
			defer func() { _ = cutL.Close() }()

			summary, err := report.Build(rows, syncL, cutL)
			if err != nil {
				return err
			}
			if err := summary.WriteText(cmd.OutOrStdout()); err != nil {
				return err
			}

			if out == "" {
				out = filepath.Join(filepath.Dir(cfg.Roster), report.MissingFilesReport)
			}
			if err := report.WriteMissingCSV(out, summary.Missing); err != nil {
				return fmt.Errorf("write missing report: %w", err)
			}
			logger.Info().Str("event", "report.missing_written").Str("path", out).Int("entries", len(summary.Missing)).Msg("missing recordings report written")

			if plot == "" {
				return nil
			}
			entries, err := syncL.Completed()
			if err != nil {
				return err
			}
			err = report.PlotOffsets(plot, report.Offsets(entries), bins)
			if errors.Is(err, report.ErrNoOffsets) {
				logger.Warn().Str("event", "report.plot_skipped").Msg("no offsets recorded, histogram not written")
				return nil
			}
			if err != nil {
				return fmt.Errorf("plot offsets: %w", err)
			}
			logger.Info().Str("event", "report.plot_written").Str("path", plot).Msg("offset histogram written")
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "missing-recordings CSV path")
	cmd.Flags().StringVar(&plot, "plot", "", "write an offset histogram PNG to this path")
	cmd.Flags().IntVar(&bins, "bins", 20, "histogram bins")
	return cmd
}
