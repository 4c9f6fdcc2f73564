// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package batch drives the pipeline stages over the roster. Each session is isolated:
// its error is recorded to the stage's failed ledger and the batch moves on. Reruns
// skip sessions recorded as completed and recover partial work through the stages'
// own existence checks.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/ledger"
	"github.com/ManuGH/camsync/internal/log"
	"github.com/ManuGH/camsync/internal/metrics"
	"github.com/ManuGH/camsync/internal/pipeline/composite"
	"github.com/ManuGH/camsync/internal/pipeline/inventory"
	"github.com/ManuGH/camsync/internal/pipeline/normalize"
	"github.com/ManuGH/camsync/internal/pipeline/segment"
	"github.com/ManuGH/camsync/internal/pipeline/syncer"
	"github.com/ManuGH/camsync/internal/roster"
	"github.com/ManuGH/camsync/internal/telemetry"
)

// ErrNotSynced is returned by the cut stage for a session whose cameras were
// discovered but never synced.
var ErrNotSynced = errors.New("session has no synced channels")

// Skip reasons reported in Summary and metrics.
const (
	SkipIneligible   = "ineligible"
	SkipCompleted    = "completed"
	SkipManualOffset = "manual_offset"
	SkipNoPhases     = "no_phases"
)

// Deps are the stage implementations and ledgers the driver orchestrates.
type Deps struct {
	Normalizer *normalize.Normalizer
	Syncer     *syncer.Coordinator
	Segmenter  *segment.Segmenter
	Compositor *composite.Compositor
	SyncLedger ledger.Ledger
	CutLedger  ledger.Ledger
}

// Driver runs the sync and cut stages over sessions under DBDir/Sessions.
type Driver struct {
	dbDir       string
	concurrency int
	deps        Deps
	logger      zerolog.Logger
	tracer      trace.Tracer
	newRunID    func() string
}

// New creates a driver. concurrency < 1 is treated as sequential.
func New(dbDir string, concurrency int, deps Deps, logger zerolog.Logger) *Driver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Driver{
		dbDir:       dbDir,
		concurrency: concurrency,
		deps:        deps,
		logger:      logger,
		tracer:      telemetry.Tracer("camsync/batch"),
		newRunID:    uuid.NewString,
	}
}

// SessionsDir is the parent of every session directory.
func SessionsDir(dbDir string) string {
	return filepath.Join(dbDir, "Sessions")
}

// Summary reports the outcome of one batch invocation.
type Summary struct {
	RunID     string
	Stage     ledger.Stage
	Completed []string
	Failed    []string
	Skipped   map[string]string // id -> reason
}

func newSummary(runID string, stage ledger.Stage) *Summary {
	return &Summary{RunID: runID, Stage: stage, Skipped: make(map[string]string)}
}

// work processes one session and returns the offset to record, if any.
type work func(ctx context.Context, row roster.Row) (*int64, error)

// filter returns a skip reason, or "" to process the row.
type filter func(row roster.Row) (string, error)

func (d *Driver) run(ctx context.Context, stage ledger.Stage, lg ledger.Ledger, rows []roster.Row, skip filter, do work) (*Summary, error) {
	runID := d.newRunID()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithContext(ctx, d.logger)
	ctx, span := d.tracer.Start(ctx, "batch."+string(stage), trace.WithAttributes(telemetry.SessionAttributes(runID, "", string(stage))...))

	summary := newSummary(runID, stage)
	logger.Info().
		Str("event", "batch.start").
		Str("stage", string(stage)).
		Int("rows", len(rows)).
		Int("concurrency", d.concurrency).
		Msg("batch started")

	var (
		mu        sync.Mutex
		ledgerErr []error
		g         errgroup.Group
	)
	g.SetLimit(d.concurrency)

	var filterErr error
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		reason, err := skip(row)
		if err != nil {
			filterErr = fmt.Errorf("ledger lookup %s: %w", row.ID, err)
			break
		}
		if reason != "" {
			metrics.RowsSkipped.WithLabelValues(string(stage), reason).Inc()
			summary.Skipped[row.ID] = reason
			logger.Debug().
				Str("event", "batch.row_skipped").
				Str("session_id", row.ID).
				Str("reason", reason).
				Msg("row skipped")
			continue
		}

		g.Go(func() error {
			offset, err := d.process(ctx, stage, row, do)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Completed = append(summary.Completed, row.ID)
				if lerr := lg.MarkCompleted(ledger.Entry{ID: row.ID, Offset: offset}); lerr != nil {
					ledgerErr = append(ledgerErr, lerr)
				}
			case ctx.Err() != nil:
				// interrupted: the next invocation retries from existing artifacts.
				logger.Warn().Str("event", "batch.session_interrupted").Str("session_id", row.ID).Msg("session interrupted")
			default:
				summary.Failed = append(summary.Failed, row.ID)
				if lerr := lg.MarkFailed(row.ID); lerr != nil {
					ledgerErr = append(ledgerErr, lerr)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info().
		Str("event", "batch.done").
		Str("stage", string(stage)).
		Int("completed", len(summary.Completed)).
		Int("failed", len(summary.Failed)).
		Int("skipped", len(summary.Skipped)).
		Msg("batch finished")

	err := errors.Join(append([]error{filterErr, ctx.Err()}, ledgerErr...)...)
	telemetry.EndWithError(span, err)
	return summary, err
}

// process runs do for one row with session-scoped logging, tracing and metrics.
func (d *Driver) process(ctx context.Context, stage ledger.Stage, row roster.Row, do work) (offset *int64, err error) {
	ctx = log.ContextWithSessionID(ctx, row.ID)
	logger := log.WithContext(ctx, d.logger)
	ctx, span := d.tracer.Start(ctx, "batch."+string(stage)+".session",
		trace.WithAttributes(telemetry.SessionAttributes(log.RunIDFromContext(ctx), row.ID, string(stage))...))
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing session %s: %v", row.ID, r)
		}
		outcome := "completed"
		if err != nil {
			outcome = "failed"
			logger.Error().
				Err(err).
				Str("event", "batch.session_failed").
				Str("stage", string(stage)).
				Msg("session failed")
		} else {
			logger.Info().
				Str("event", "batch.session_completed").
				Str("stage", string(stage)).
				Dur("duration", time.Since(started)).
				Msg("session completed")
		}
		metrics.ObserveSession(string(stage), outcome, started)
		telemetry.EndWithError(span, err)
	}()

	return do(ctx, row)
}

// sessionDir resolves id under Sessions/, rejecting ids that escape it.
func (d *Driver) sessionDir(id string) (string, error) {
	dir, err := fsutil.ConfineRelPath(SessionsDir(d.dbDir), id)
	if err != nil {
		return "", fmt.Errorf("session id %q: %w", id, err)
	}
	return dir, nil
}

// load discovers a session's channels.
func (d *Driver) load(id string) (*session.Session, error) {
	dir, err := d.sessionDir(id)
	if err != nil {
		return nil, err
	}
	s := session.New(id, dir)
	inventory.Discover(dir).Apply(s)
	return s, nil
}
