// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package syncer brings every available channel of a session onto a common timeline.
//
// The subject pair is aligned first (secondary against primary). Wide-angle cameras
// then align against the best already-synced channel, see ChooseReference. Channels
// without a usable reference are copied through unchanged and may in turn serve as
// reference for later cameras.
package syncer

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

// Options tune the optional preview renders.
type Options struct {
	Visualize bool
	Width     int
	Height    int
	FPS       float64
}

// Result summarises one sync run.
type Result struct {
	// Alignments holds one entry per synced channel, in processing order.
	Alignments []session.Alignment
	// PairOffsetMS is the secondary-vs-primary offset; nil unless both were present.
	PairOffsetMS *int64
}

// Coordinator runs the reference-selection policy against an Aligner.
type Coordinator struct {
	aligner    media.Aligner
	compositor media.Compositor
	opts       Options
	logger     zerolog.Logger
}

// New creates a coordinator. compositor may be nil when previews are disabled.
func New(aligner media.Aligner, compositor media.Compositor, opts Options, logger zerolog.Logger) *Coordinator {
	if opts.Width <= 0 {
		opts.Width = 1920
	}
	if opts.Height <= 0 {
		opts.Height = 1080
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	return &Coordinator{aligner: aligner, compositor: compositor, opts: opts, logger: logger}
}

// Run syncs s in place, filling Channel.Synced for every available role.
func (c *Coordinator) Run(ctx context.Context, s *session.Session) (*Result, error) {
	layout := session.Layout{Dir: s.Dir}
	if err := os.MkdirAll(layout.SyncedDir(), 0o755); err != nil {
		return nil, err
	}
	previous, err := LoadAlignments(layout)
	if err != nil {
		c.logger.Warn().Err(err).Str("event", "sync.sidecar_unreadable").Msg("ignoring previous alignment sidecar")
		previous = nil
	}

	// record persists each fresh offset right away, so outputs committed by the
	// aligner never outlive the only copy of their offset.
	record := func(a session.Alignment) error {
		previous = upsert(previous, a)
		if err := saveAlignments(layout, s.ID, previous); err != nil {
			return fmt.Errorf("write alignment sidecar: %w", err)
		}
		return nil
	}

	res := &Result{}
	primary, hasPrimary := s.Channels[session.RolePrimary]
	secondary, hasSecondary := s.Channels[session.RoleSecondary]

	switch {
	case hasPrimary && hasSecondary:
		a, err := c.alignPair(ctx, layout, primary, secondary, previous, record)
		if err != nil {
			return nil, err
		}
		res.PairOffsetMS = a.OffsetMS
		res.Alignments = append(res.Alignments, session.Alignment{Reference: primary.Role, Target: primary.Role}, a)
	case hasPrimary:
		if err := c.copyThrough(layout, primary); err != nil {
			return nil, err
		}
		res.Alignments = append(res.Alignments, session.Alignment{Reference: primary.Role, Target: primary.Role})
	case hasSecondary:
		if err := c.copyThrough(layout, secondary); err != nil {
			return nil, err
		}
		res.Alignments = append(res.Alignments, session.Alignment{Reference: secondary.Role, Target: secondary.Role})
	}

	for _, role := range []session.Role{session.RoleWideA, session.RoleWideB} {
		ch, ok := s.Channels[role]
		if !ok {
			continue
		}
		synced := make(map[session.Role]bool, len(s.Channels))
		for r, other := range s.Channels {
			synced[r] = other.Synced != ""
		}
		refRole, found := ChooseReference(synced, AuxReferencePriority)
		if !found || refRole == role {
			c.logger.Info().
				Str("event", "sync.no_reference").
				Str("role", string(role)).
				Msg("no synced reference available, copying through")
			if err := c.copyThrough(layout, ch); err != nil {
				return nil, err
			}
			res.Alignments = append(res.Alignments, session.Alignment{Reference: role, Target: role})
			continue
		}
		a, err := c.alignAux(ctx, layout, s.Channels[refRole], ch, previous, record)
		if err != nil {
			return nil, err
		}
		res.Alignments = append(res.Alignments, a)
	}

	if len(res.Alignments) > 0 {
		if err := saveAlignments(layout, s.ID, res.Alignments); err != nil {
			return nil, fmt.Errorf("write alignment sidecar: %w", err)
		}
	}
	return res, nil
}

func (c *Coordinator) alignPair(ctx context.Context, layout session.Layout, ref, target *session.Channel, previous []session.Alignment, record func(session.Alignment) error) (session.Alignment, error) {
	refOut := layout.Synced(ref.Role)
	targetOut := layout.Synced(target.Role)
	a := session.Alignment{Reference: ref.Role, Target: target.Role}

	if fsutil.Exists(refOut) && fsutil.Exists(targetOut) {
		metrics.ArtifactsReused.WithLabelValues("synced").Inc()
		a.OffsetMS = c.reusedOffset(previous, target.Role)
		c.logger.Debug().Str("event", "sync.reused").Str("role", string(target.Role)).Msg("synced pair exists")
	} else {
		offset, err := c.aligner.Align(ctx, media.AlignRequest{
			Reference:    ref.Input(),
			Target:       target.Input(),
			ReferenceOut: refOut,
			TargetOut:    targetOut,
		})
		if err != nil {
			return a, fmt.Errorf("align %s to %s: %w", target.Role, ref.Role, err)
		}
		a.OffsetMS = &offset
		if err := record(a); err != nil {
			return a, err
		}
		c.logger.Info().
			Str("event", "sync.pair_aligned").
			Str("reference", string(ref.Role)).
			Str("role", string(target.Role)).
			Int64("offset_ms", offset).
			Msg("aligned subject pair")
	}
	ref.Synced = refOut
	target.Synced = targetOut
	return a, c.preview(ctx, layout, ref.Role, refOut, target.Role, targetOut)
}

func (c *Coordinator) alignAux(ctx context.Context, layout session.Layout, ref, target *session.Channel, previous []session.Alignment, record func(session.Alignment) error) (session.Alignment, error) {
	out := layout.Synced(target.Role)
	a := session.Alignment{Reference: ref.Role, Target: target.Role}

	if fsutil.Exists(out) {
		metrics.ArtifactsReused.WithLabelValues("synced").Inc()
		a.OffsetMS = c.reusedOffset(previous, target.Role)
	} else {
		offset, err := c.aligner.Align(ctx, media.AlignRequest{
			Reference: ref.Synced,
			Target:    target.Input(),
			TargetOut: out,
		})
		if err != nil {
			return a, fmt.Errorf("align %s to %s: %w", target.Role, ref.Role, err)
		}
		a.OffsetMS = &offset
		if err := record(a); err != nil {
			return a, err
		}
		c.logger.Info().
			Str("event", "sync.aux_aligned").
			Str("reference", string(ref.Role)).
			Str("role", string(target.Role)).
			Int64("offset_ms", offset).
			Msg("aligned auxiliary camera")
	}
	target.Synced = out
	return a, c.preview(ctx, layout, ref.Role, ref.Synced, target.Role, out)
}

// reusedOffset returns the recorded offset for outputs that already exist. Outputs
// without one (e.g. written by an older tool) keep a nil offset.
func (c *Coordinator) reusedOffset(previous []session.Alignment, role session.Role) *int64 {
	if prev, ok := lookup(previous, role); ok && prev.OffsetMS != nil {
		return prev.OffsetMS
	}
	c.logger.Warn().
		Str("event", "sync.offset_unknown").
		Str("role", string(role)).
		Msg("synced output exists but its offset was never recorded")
	return nil
}

func (c *Coordinator) copyThrough(layout session.Layout, ch *session.Channel) error {
	out := layout.Synced(ch.Role)
	if err := fsutil.CopyFile(ch.Input(), out); err != nil {
		return fmt.Errorf("copy %s: %w", ch.Role, err)
	}
	ch.Synced = out
	return nil
}

// preview renders reference-over-target so the alignment can be checked by eye.
func (c *Coordinator) preview(ctx context.Context, layout session.Layout, refRole session.Role, refPath string, role session.Role, path string) error {
	if !c.opts.Visualize || c.compositor == nil {
		return nil
	}
	out := layout.SyncPreview(refRole, role)
	if fsutil.Exists(out) {
		return nil
	}
	err := c.compositor.Composite(ctx, media.CompositeSpec{
		Layout:    media.LayoutVStack,
		Slots:     []media.Slot{{Path: refPath}, {Path: path}},
		AudioSlot: 1,
		Output:    out,
		Width:     c.opts.Width,
		Height:    c.opts.Height,
		FPS:       c.opts.FPS,
	})
	if err != nil {
		return fmt.Errorf("sync preview %s/%s: %w", refRole, role, err)
	}
	return nil
}
