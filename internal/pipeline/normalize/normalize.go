// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package normalize brings the wide-angle tape captures to the common frame rate.
package normalize

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/media"
	"github.com/ManuGH/camsync/internal/metrics"
)

const (
	// DefaultTargetFPS is the frame rate every channel is brought to.
	DefaultTargetFPS = 60.0
	// FPSTolerance is the deviation below which a stream is copied verbatim.
	FPSTolerance = 0.01
)

// Engine is the subset of media capabilities the normalizer uses.
type Engine interface {
	media.Prober
	media.Transcoder
}

// Normalizer resamples wide-angle channels.
type Normalizer struct {
	engine    Engine
	targetFPS float64
	logger    zerolog.Logger
}

// New creates a normalizer; targetFPS <= 0 selects DefaultTargetFPS.
func New(engine Engine, targetFPS float64, logger zerolog.Logger) *Normalizer {
	if targetFPS <= 0 {
		targetFPS = DefaultTargetFPS
	}
	return &Normalizer{engine: engine, targetFPS: targetFPS, logger: logger}
}

// NeedsTranscode reports whether fps deviates from target beyond the tolerance.
func NeedsTranscode(fps, target float64) bool {
	return math.Abs(fps-target) > FPSTolerance
}

// Run normalizes every wide-angle channel of s, setting Channel.Normalized.
// Primary and secondary channels pass through untouched.
func (n *Normalizer) Run(ctx context.Context, s *session.Session) error {
	layout := session.Layout{Dir: s.Dir}
	for _, role := range []session.Role{session.RoleWideA, session.RoleWideB} {
		ch, ok := s.Channels[role]
		if !ok {
			continue
		}
		out := layout.Normalized(role)
		if err := n.normalize(ctx, ch.Raw, out); err != nil {
			return fmt.Errorf("normalize %s: %w", role, err)
		}
		ch.Normalized = out
	}
	return nil
}

func (n *Normalizer) normalize(ctx context.Context, raw, out string) error {
	if fsutil.Exists(out) {
		metrics.ArtifactsReused.WithLabelValues("normalized").Inc()
		n.logger.Debug().Str("event", "normalize.reused").Str("path", out).Msg("normalized output exists")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	fps, err := n.engine.ProbeFPS(ctx, raw)
	if err != nil {
		return err
	}

	if NeedsTranscode(fps, n.targetFPS) {
		n.logger.Info().
			Str("event", "normalize.transcode").
			Str("path", raw).
			Float64("fps", fps).
			Float64("target_fps", n.targetFPS).
			Msg("resampling to target frame rate")
		return n.engine.Transcode(ctx, raw, out, n.targetFPS)
	}

	n.logger.Info().
		Str("event", "normalize.copy").
		Str("path", raw).
		Float64("fps", fps).
		Msg("frame rate within tolerance, copying")
	if err := fsutil.CopyFile(raw, out); err != nil {
		return media.NewOpError(media.ErrTranscode, "copy", out, "", err)
	}
	return nil
}
