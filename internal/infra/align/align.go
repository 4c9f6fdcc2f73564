// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package align estimates the offset between two independently clocked recordings by
// cross-correlating their audio tracks, then rewrites the recordings so they start at
// the same instant.
package align

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/media"
)

var _ media.Aligner = (*Aligner)(nil)

// Source decodes audio and applies a timeline shift. *ffmpeg.Engine satisfies it.
type Source interface {
	ExtractPCM(ctx context.Context, in string, sampleRate int, seconds float64) ([]float64, error)
	Shift(ctx context.Context, in, out string, offset time.Duration) error
}

// Config tunes the estimator.
type Config struct {
	SampleRate     int           // decode rate for correlation
	AnalyzeSeconds float64       // leading audio used per recording; <= 0 for all
	MaxLag         time.Duration // search window in both directions
}

// DefaultConfig matches the lab's recording practice: cameras are started by hand
// within a minute of each other.
func DefaultConfig() Config {
	return Config{
		SampleRate:     8000,
		AnalyzeSeconds: 300,
		MaxLag:         60 * time.Second,
	}
}

// Aligner implements media.Aligner.
type Aligner struct {
	src    Source
	cfg    Config
	logger zerolog.Logger
}

// New creates an aligner over src.
func New(src Source, cfg Config, logger zerolog.Logger) *Aligner {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.MaxLag <= 0 {
		cfg.MaxLag = def.MaxLag
	}
	return &Aligner{src: src, cfg: cfg, logger: logger}
}

// Align estimates the offset of req.Target against req.Reference and writes the
// shifted outputs. Outputs that already exist are left untouched.
func (a *Aligner) Align(ctx context.Context, req media.AlignRequest) (int64, error) {
	ref, err := a.src.ExtractPCM(ctx, req.Reference, a.cfg.SampleRate, a.cfg.AnalyzeSeconds)
	if err != nil {
		return 0, fmt.Errorf("reference audio: %w", err)
	}
	tgt, err := a.src.ExtractPCM(ctx, req.Target, a.cfg.SampleRate, a.cfg.AnalyzeSeconds)
	if err != nil {
		return 0, fmt.Errorf("target audio: %w", err)
	}

	maxLag := int(a.cfg.MaxLag.Seconds() * float64(a.cfg.SampleRate))
	lag, err := EstimateLag(ref, tgt, maxLag)
	if err != nil {
		return 0, media.NewOpError(media.ErrAlign, "correlate", req.Target, "", err)
	}
	offsetMS := int64(math.Round(float64(lag) * 1000 / float64(a.cfg.SampleRate)))
	offset := time.Duration(offsetMS) * time.Millisecond

	a.logger.Info().
		Str("event", "align.offset_estimated").
		Str("reference", req.Reference).
		Str("target", req.Target).
		Int64("offset_ms", offsetMS).
		Msg("estimated offset")

	// Positive: the target started first, drop its head. Negative: the reference
	// started first; in pairwise mode drop the reference head, otherwise pad the target.
	targetShift := offset
	refShift := time.Duration(0)
	if offset < 0 && req.ReferenceOut != "" {
		targetShift = 0
		refShift = -offset
	}

	if req.ReferenceOut != "" && !fsutil.Exists(req.ReferenceOut) {
		if err := a.src.Shift(ctx, req.Reference, req.ReferenceOut, refShift); err != nil {
			return 0, err
		}
	}
	if !fsutil.Exists(req.TargetOut) {
		if err := a.src.Shift(ctx, req.Target, req.TargetOut, targetShift); err != nil {
			return 0, err
		}
	}
	return offsetMS, nil
}

// ErrSilent is returned when either recording carries no usable audio energy.
var ErrSilent = errors.New("audio track is silent")
