package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/camsync/internal/batch"
	"github.com/ManuGH/camsync/internal/config"
	"github.com/ManuGH/camsync/internal/infra/align"
	"github.com/ManuGH/camsync/internal/infra/ffmpeg"
	"github.com/ManuGH/camsync/internal/ledger"
	"github.com/ManuGH/camsync/internal/log"
	"github.com/ManuGH/camsync/internal/metrics"
	"github.com/ManuGH/camsync/internal/pipeline/composite"
	"github.com/ManuGH/camsync/internal/pipeline/normalize"
	"github.com/ManuGH/camsync/internal/pipeline/segment"
	"github.com/ManuGH/camsync/internal/pipeline/syncer"
	"github.com/ManuGH/camsync/internal/telemetry"
)

// runtime owns everything one command invocation opens.
type runtime struct {
	cfg       config.Config
	driver    *batch.Driver
	syncL     ledger.Ledger
	cutL      ledger.Ledger
	telemetry *telemetry.Provider
}

type runtimeOptions struct {
	visualize bool
}

func newRuntime(ctx context.Context, cfg config.Config, opts runtimeOptions) (_ *runtime, err error) {
	rt := &runtime{cfg: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close(context.Background())
		}
	}()

	rt.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceVersion: cfg.Version,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	if rt.syncL, err = ledger.Open(cfg.Ledger.Backend, cfg.DBDir, ledger.StageSync); err != nil {
		return nil, err
	}
	if rt.cutL, err = ledger.Open(cfg.Ledger.Backend, cfg.DBDir, ledger.StageCut); err != nil {
		return nil, err
	}

	engine := ffmpeg.New(cfg.FFmpeg.Bin, cfg.FFmpeg.FFprobeBin, log.WithComponent("ffmpeg"))
	aligner := align.New(engine, align.Config{
		SampleRate:     cfg.Align.SampleRate,
		AnalyzeSeconds: cfg.Align.AnalyzeSeconds,
		MaxLag:         cfg.Align.MaxLag,
	}, log.WithComponent("align"))

	canvas := composite.Options{Width: cfg.Media.Width, Height: cfg.Media.Height, FPS: cfg.Media.TargetFPS}
	deps := batch.Deps{
		Normalizer: normalize.New(engine, cfg.Media.TargetFPS, log.WithComponent("normalize")),
		Syncer: syncer.New(aligner, engine, syncer.Options{
			Visualize: opts.visualize,
			Width:     cfg.Media.Width,
			Height:    cfg.Media.Height,
			FPS:       cfg.Media.TargetFPS,
		}, log.WithComponent("syncer")),
		Segmenter:  segment.New(engine, log.WithComponent("segment")),
		Compositor: composite.New(engine, canvas, log.WithComponent("composite")),
		SyncLedger: rt.syncL,
		CutLedger:  rt.cutL,
	}
	rt.driver = batch.New(cfg.DBDir, cfg.Concurrency, deps, log.WithComponent("batch"))
	return rt, nil
}

// Close releases the ledgers, exports metrics and flushes spans.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.syncL != nil {
		errs = append(errs, rt.syncL.Close())
	}
	if rt.cutL != nil {
		errs = append(errs, rt.cutL.Close())
	}
	errs = append(errs, metrics.WriteTextfile(rt.cfg.Metrics.Textfile))
	errs = append(errs, rt.telemetry.Shutdown(ctx))
	return errors.Join(errs...)
}
