// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package composite renders per-phase preview videos from the phase cuts: a
// mother-over-baby stack and a four-camera grid with black fillers for absent cameras.
package composite

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/media"
	"github.com/ManuGH/camsync/internal/metrics"
)

// Engine is the subset of media capabilities the compositor uses.
type Engine interface {
	media.Prober
	media.Compositor
	media.Snapshotter
}

// Cuts maps role -> phase -> cut path.
type Cuts map[session.Role]map[string]string

func (c Cuts) path(role session.Role, phase string) (string, bool) {
	p, ok := c[role][phase]
	return p, ok
}

// ExistingCuts collects the phase cuts already present under processed/.
func ExistingCuts(layout session.Layout, phases []string) Cuts {
	out := make(Cuts)
	for _, r := range session.Roles {
		for _, p := range phases {
			path := layout.Cut(r, p)
			if !fsutil.Exists(path) {
				continue
			}
			if out[r] == nil {
				out[r] = make(map[string]string)
			}
			out[r][p] = path
		}
	}
	return out
}

// Options sets the canvas for every composite.
type Options struct {
	Width  int
	Height int
	FPS    float64
}

// Result lists the composites rendered or reused, and those skipped.
type Result struct {
	Outputs []string
	Skipped []string
}

// Compositor renders stacks and grids.
type Compositor struct {
	engine Engine
	opts   Options
	logger zerolog.Logger
}

func New(engine Engine, opts Options, logger zerolog.Logger) *Compositor {
	if opts.Width <= 0 {
		opts.Width = 1920
	}
	if opts.Height <= 0 {
		opts.Height = 1080
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	return &Compositor{engine: engine, opts: opts, logger: logger}
}

// Run renders the pair stack and the quad grid for each phase.
func (c *Compositor) Run(ctx context.Context, sessionDir string, phases []string, cuts Cuts) (*Result, error) {
	layout := session.Layout{Dir: sessionDir}
	if err := os.MkdirAll(layout.VisualizeDir(), 0o755); err != nil {
		return nil, err
	}
	res := &Result{}
	for _, phase := range phases {
		if err := c.pairStack(ctx, layout, phase, cuts, res); err != nil {
			return res, err
		}
		if err := c.quadGrid(ctx, layout, phase, cuts, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (c *Compositor) pairStack(ctx context.Context, layout session.Layout, phase string, cuts Cuts, res *Result) error {
	out := layout.PairStack(phase)
	top, okTop := cuts.path(session.RolePrimary, phase)
	bottom, okBottom := cuts.path(session.RoleSecondary, phase)
	if !okTop || !okBottom {
		c.logger.Info().
			Str("event", "composite.stack_skipped").
			Str("phase", phase).
			Msg("subject pair incomplete")
		res.Skipped = append(res.Skipped, out)
		return nil
	}
	if c.reused(out, res) {
		return nil
	}
	err := c.engine.Composite(ctx, media.CompositeSpec{
		Layout:    media.LayoutVStack,
		Slots:     []media.Slot{{Path: top}, {Path: bottom}},
		AudioSlot: 1,
		Output:    out,
		Width:     c.opts.Width,
		Height:    c.opts.Height,
		FPS:       c.opts.FPS,
	})
	if err != nil {
		return fmt.Errorf("pair stack %s: %w", phase, err)
	}
	res.Outputs = append(res.Outputs, out)
	return nil
}

func (c *Compositor) quadGrid(ctx context.Context, layout session.Layout, phase string, cuts Cuts, res *Result) error {
	out := layout.QuadGrid(phase)
	available := make(map[session.Role]bool, len(GridOrder))
	for _, r := range GridOrder {
		_, available[r] = cuts.path(r, phase)
	}
	audioRole, ok := ChooseAudio(available, AudioPriority)
	if !ok {
		c.logger.Info().
			Str("event", "composite.grid_skipped").
			Str("phase", phase).
			Msg("no channel has a cut for this phase")
		res.Skipped = append(res.Skipped, out)
		return nil
	}
	if c.reused(out, res) {
		return nil
	}

	audioPath, _ := cuts.path(audioRole, phase)
	duration, err := c.engine.ProbeDuration(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("quad grid %s: %w", phase, err)
	}

	spec := media.CompositeSpec{
		Layout:    media.LayoutGrid2x2,
		Slots:     make([]media.Slot, len(GridOrder)),
		AudioSlot: -1,
		Output:    out,
		Width:     c.opts.Width,
		Height:    c.opts.Height,
		FPS:       c.opts.FPS,
		Duration:  duration,
	}
	for i, r := range GridOrder {
		if p, ok := cuts.path(r, phase); ok {
			spec.Slots[i] = media.Slot{Path: p}
		} else {
			spec.Slots[i] = media.Slot{Filler: true}
		}
		if r == audioRole {
			spec.AudioSlot = i
		}
	}
	if err := c.engine.Composite(ctx, spec); err != nil {
		return fmt.Errorf("quad grid %s: %w", phase, err)
	}
	c.logger.Info().
		Str("event", "composite.grid_rendered").
		Str("phase", phase).
		Str("role", string(audioRole)).
		Int("fillers", len(GridOrder)-spec.RealSlots()).
		Msg("quad grid rendered")
	res.Outputs = append(res.Outputs, out)
	return nil
}

func (c *Compositor) reused(out string, res *Result) bool {
	if !fsutil.Exists(out) {
		return false
	}
	metrics.ArtifactsReused.WithLabelValues("composite").Inc()
	res.Outputs = append(res.Outputs, out)
	return true
}
