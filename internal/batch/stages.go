package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/ledger"
	"github.com/ManuGH/camsync/internal/log"
	"github.com/ManuGH/camsync/internal/pipeline/composite"
	"github.com/ManuGH/camsync/internal/roster"
)

// RunSync normalizes and syncs every eligible row not yet completed. Rows carrying a
// manual offset are treated as already synced.
func (d *Driver) RunSync(ctx context.Context, rows []roster.Row) (*Summary, error) {
	lg := d.deps.SyncLedger
	skip := func(row roster.Row) (string, error) {
		if !row.Eligible {
			return SkipIneligible, nil
		}
		done, err := lg.HasCompleted(row.ID)
		if err != nil {
			return "", err
		}
		if done {
			return SkipCompleted, nil
		}
		if row.ManualOffsetMS != nil {
			return SkipManualOffset, nil
		}
		return "", nil
	}
	return d.run(ctx, ledger.StageSync, lg, rows, skip, func(ctx context.Context, row roster.Row) (*int64, error) {
		return d.syncSession(ctx, row.ID)
	})
}

// RunCut cuts and composites every eligible, annotated row not yet completed.
func (d *Driver) RunCut(ctx context.Context, rows []roster.Row) (*Summary, error) {
	lg := d.deps.CutLedger
	skip := func(row roster.Row) (string, error) {
		if !row.Eligible {
			return SkipIneligible, nil
		}
		done, err := lg.HasCompleted(row.ID)
		if err != nil {
			return "", err
		}
		if done {
			return SkipCompleted, nil
		}
		if !row.HasPhases() {
			return SkipNoPhases, nil
		}
		return "", nil
	}
	return d.run(ctx, ledger.StageCut, lg, rows, skip, func(ctx context.Context, row roster.Row) (*int64, error) {
		phases, err := row.Phases()
		if err != nil {
			return nil, err
		}
		return nil, d.cutSession(ctx, row.ID, phases)
	})
}

// SyncSession runs the sync stage for one id regardless of roster and ledgers, and
// writes no ledger lines.
func (d *Driver) SyncSession(ctx context.Context, id string) (*int64, error) {
	ctx = log.ContextWithRunID(ctx, d.newRunID())
	return d.process(ctx, ledger.StageSync, roster.Row{ID: id}, func(ctx context.Context, _ roster.Row) (*int64, error) {
		return d.syncSession(ctx, id)
	})
}

// CutSession runs the cut stage for one id with explicit phases, without ledgers.
func (d *Driver) CutSession(ctx context.Context, id string, phases []session.Phase) error {
	ctx = log.ContextWithRunID(ctx, d.newRunID())
	_, err := d.process(ctx, ledger.StageCut, roster.Row{ID: id}, func(ctx context.Context, _ roster.Row) (*int64, error) {
		return nil, d.cutSession(ctx, id, phases)
	})
	return err
}

func (d *Driver) syncSession(ctx context.Context, id string) (*int64, error) {
	logger := log.ForComponent(ctx, "batch")
	s, err := d.load(id)
	if err != nil {
		return nil, err
	}
	if len(s.Channels) == 0 {
		logger.Info().Str("event", "sync.no_channels").Msg("no camera files found, nothing to sync")
		return nil, nil
	}
	if err := d.deps.Normalizer.Run(ctx, s); err != nil {
		return nil, err
	}
	res, err := d.deps.Syncer.Run(ctx, s)
	if err != nil {
		return nil, err
	}
	return res.PairOffsetMS, nil
}

func (d *Driver) cutSession(ctx context.Context, id string, phases []session.Phase) error {
	logger := log.ForComponent(ctx, "batch")
	s, err := d.load(id)
	if err != nil {
		return err
	}
	if len(s.Channels) == 0 {
		logger.Info().Str("event", "cut.no_channels").Msg("no camera files found, nothing to cut")
		return nil
	}

	layout := session.Layout{Dir: s.Dir}
	for role, ch := range s.Channels {
		if p := layout.Synced(role); fsutil.Exists(p) {
			ch.Synced = p
		}
	}
	if len(s.SyncedPaths()) == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotSynced)
	}

	res, err := d.deps.Segmenter.Run(ctx, s, phases)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(phases))
	for _, p := range phases {
		names = append(names, p.Name)
	}
	_, err = d.deps.Compositor.Run(ctx, s.Dir, names, composite.Cuts(res.Cuts))
	return err
}

// Visualize renders stacks from existing cuts (mode "stack") or thumbnails (mode
// "thumbnail") for id, or for every session directory when id is empty. In batch
// form per-session errors are logged and skipped.
func (d *Driver) Visualize(ctx context.Context, mode, id string) error {
	ids := []string{id}
	if id == "" {
		var err error
		if ids, err = d.sessionIDs(); err != nil {
			return err
		}
	}

	for _, sid := range ids {
		sctx := log.ContextWithSessionID(ctx, sid)
		err := d.visualizeOne(sctx, mode, sid)
		if err == nil {
			continue
		}
		if id != "" {
			return err
		}
		l := log.ForComponent(sctx, "batch")
		lvl := l.Error()
		if errors.Is(err, composite.ErrNoStillface) {
			lvl = l.Warn()
		}
		lvl.Err(err).Str("event", "visualize.session_failed").Str("mode", mode).Msg("visualization failed")
	}
	return nil
}

func (d *Driver) visualizeOne(ctx context.Context, mode, id string) error {
	dir, err := d.sessionDir(id)
	if err != nil {
		return err
	}
	s := session.New(id, dir)
	switch mode {
	case "stack":
		layout := session.Layout{Dir: s.Dir}
		_, err = d.deps.Compositor.Run(ctx, s.Dir, session.PhaseNames, composite.ExistingCuts(layout, session.PhaseNames))
		return err
	case "thumbnail":
		return d.deps.Compositor.Thumbnail(ctx, d.dbDir, s)
	default:
		return fmt.Errorf("unknown visualize mode %q (want stack or thumbnail)", mode)
	}
}

func (d *Driver) sessionIDs() ([]string, error) {
	entries, err := os.ReadDir(SessionsDir(d.dbDir))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
