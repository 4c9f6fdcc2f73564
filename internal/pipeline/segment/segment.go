// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package segment cuts synced channels into the annotated experiment phases.
package segment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/media"
	"github.com/ManuGH/camsync/internal/metrics"
)

// ErrDurationExceeded marks a phase that starts after the end of the recording.
var ErrDurationExceeded = errors.New("phase starts beyond recording duration")

// Engine is the subset of media capabilities the segmenter uses.
type Engine interface {
	media.Prober
	media.Trimmer
}

// Skip records one cut that was not produced.
type Skip struct {
	Role  session.Role
	Phase string
	Err   error
}

// Result maps role -> phase -> cut path for every cut present after the run.
type Result struct {
	Cuts    map[session.Role]map[string]string
	Skipped []Skip
}

// Path returns the cut for role/phase, if any.
func (r *Result) Path(role session.Role, phase string) (string, bool) {
	p, ok := r.Cuts[role][phase]
	return p, ok
}

// Segmenter trims synced recordings losslessly.
type Segmenter struct {
	engine Engine
	logger zerolog.Logger
}

func New(engine Engine, logger zerolog.Logger) *Segmenter {
	return &Segmenter{engine: engine, logger: logger}
}

type bounds struct {
	phase    session.Phase
	start    time.Duration
	duration time.Duration
}

// Run cuts every synced channel of s into phases. A phase starting after the
// channel's duration is skipped without affecting sibling phases; a trim failure
// aborts the run.
func (g *Segmenter) Run(ctx context.Context, s *session.Session, phases []session.Phase) (*Result, error) {
	parsed := make([]bounds, 0, len(phases))
	for _, p := range phases {
		start, dur, err := p.Bounds()
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, bounds{phase: p, start: start, duration: dur})
	}

	layout := session.Layout{Dir: s.Dir}
	res := &Result{Cuts: make(map[session.Role]map[string]string)}
	synced := s.SyncedPaths()

	for _, role := range s.Available() {
		in, ok := synced[role]
		if !ok {
			continue
		}
		if err := g.cutChannel(ctx, layout, role, in, parsed, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (g *Segmenter) cutChannel(ctx context.Context, layout session.Layout, role session.Role, in string, phases []bounds, res *Result) error {
	// probed lazily: only when at least one cut is missing.
	duration := -1.0

	for _, b := range phases {
		out := layout.Cut(role, b.phase.Name)
		if fsutil.Exists(out) {
			metrics.ArtifactsReused.WithLabelValues("cut").Inc()
			res.add(role, b.phase.Name, out)
			continue
		}

		if duration < 0 {
			d, err := g.engine.ProbeDuration(ctx, in)
			if err != nil {
				return fmt.Errorf("probe %s: %w", role, err)
			}
			duration = d
		}

		if b.start.Seconds() > duration {
			skip := Skip{
				Role:  role,
				Phase: b.phase.Name,
				Err:   fmt.Errorf("%s %s starts at %s, recording is %.1fs: %w", role, b.phase.Name, b.phase.Start, duration, ErrDurationExceeded),
			}
			res.Skipped = append(res.Skipped, skip)
			metrics.CutsSkipped.WithLabelValues("duration_exceeded").Inc()
			g.logger.Warn().
				Str("event", "segment.phase_skipped").
				Str("role", string(role)).
				Str("phase", b.phase.Name).
				Float64("duration", duration).
				Err(skip.Err).
				Msg("phase starts after end of recording")
			continue
		}

		if err := os.MkdirAll(layout.ProcessedDir(), 0o755); err != nil {
			return err
		}
		if err := g.engine.Trim(ctx, in, out, b.start, b.duration); err != nil {
			return fmt.Errorf("cut %s %s: %w", role, b.phase.Name, err)
		}
		g.logger.Info().
			Str("event", "segment.phase_cut").
			Str("role", string(role)).
			Str("phase", b.phase.Name).
			Str("output", out).
			Msg("phase cut")
		res.add(role, b.phase.Name, out)
	}
	return nil
}

func (r *Result) add(role session.Role, phase, path string) {
	m, ok := r.Cuts[role]
	if !ok {
		m = make(map[string]string)
		r.Cuts[role] = m
	}
	m[phase] = path
}
