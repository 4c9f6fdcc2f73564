// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ffmpeg implements the media capabilities on top of the ffmpeg and ffprobe
// binaries. Every invocation is synchronous, runs in its own process group and writes
// to a temporary sibling that is renamed into place only when the tool succeeds.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/media"
	"github.com/ManuGH/camsync/internal/metrics"
	"github.com/ManuGH/camsync/internal/procgroup"
)

var _ media.Engine = (*Engine)(nil)

// Engine runs ffmpeg/ffprobe as subprocesses.
type Engine struct {
	FFmpegBin  string
	FFprobeBin string
	Logger     zerolog.Logger
}

// New creates an engine; empty binary paths resolve through PATH.
func New(ffmpegBin, ffprobeBin string, logger zerolog.Logger) *Engine {
	ffmpegBin = strings.TrimSpace(ffmpegBin)
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	ffprobeBin = strings.TrimSpace(ffprobeBin)
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &Engine{FFmpegBin: ffmpegBin, FFprobeBin: ffprobeBin, Logger: logger}
}

// Transcode resamples in to the given frame rate.
func (e *Engine) Transcode(ctx context.Context, in, out string, fps float64) error {
	return e.produce(ctx, media.ErrTranscode, "transcode", out, func(tmp string) []string {
		return transcodeArgs(in, tmp, fps)
	})
}

// Trim extracts [start, start+duration) with stream copy.
func (e *Engine) Trim(ctx context.Context, in, out string, start, duration time.Duration) error {
	return e.produce(ctx, media.ErrTrim, "trim", out, func(tmp string) []string {
		return trimArgs(in, tmp, start, duration)
	})
}

// Composite renders a stacked or gridded preview.
func (e *Engine) Composite(ctx context.Context, spec media.CompositeSpec) error {
	if spec.RealSlots() == 0 {
		return media.NewOpError(media.ErrComposite, "composite", spec.Output, "", fmt.Errorf("no real input"))
	}
	return e.produce(ctx, media.ErrComposite, "composite", spec.Output, func(tmp string) []string {
		return compositeArgs(spec, tmp)
	})
}

// Snapshot writes the frame at offset at as an image.
func (e *Engine) Snapshot(ctx context.Context, in, out string, at time.Duration) error {
	return e.produce(ctx, media.ErrComposite, "snapshot", out, func(tmp string) []string {
		return snapshotArgs(in, tmp, at)
	})
}

// Shift moves in's timeline by offset into out: a positive offset drops the head,
// a negative one pads the head with black and silence. Zero copies verbatim.
func (e *Engine) Shift(ctx context.Context, in, out string, offset time.Duration) error {
	if offset == 0 {
		if err := fsutil.CopyFile(in, out); err != nil {
			return media.NewOpError(media.ErrAlign, "shift", out, "", err)
		}
		return nil
	}
	return e.produce(ctx, media.ErrAlign, "shift", out, func(tmp string) []string {
		return shiftArgs(in, tmp, offset)
	})
}

// produce runs ffmpeg into a temporary sibling of out and commits it on success.
func (e *Engine) produce(ctx context.Context, kind error, op, out string, build func(tmp string) []string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return media.NewOpError(kind, op, out, "", err)
	}
	tmp := fsutil.TempSibling(out)
	_ = os.Remove(tmp) // leftover from an interrupted run

	if _, err := e.run(ctx, kind, op, out, e.FFmpegBin, build(tmp)); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := fsutil.Commit(tmp, out); err != nil {
		return media.NewOpError(kind, op, out, "", err)
	}
	return nil
}

// run executes bin and returns stdout. stderr is kept as a bounded tail for diagnostics.
func (e *Engine) run(ctx context.Context, kind error, op, path, bin string, args []string) ([]byte, error) {
	started := time.Now()
	// #nosec G204 -- binaries come from operator config; args are built internally
	cmd := exec.CommandContext(ctx, bin, args...)
	procgroup.Set(cmd)

	tail := newLineTail(64)
	cmd.Stderr = tail

	e.Logger.Debug().
		Str("event", "media.exec").
		Str("op", op).
		Str("bin", bin).
		Strs("args", args).
		Msg("running media tool")

	out, err := cmd.Output()
	metrics.ObserveMediaOp(op, started, err)
	if err != nil {
		e.Logger.Warn().
			Err(err).
			Str("event", "media.exec_failed").
			Str("op", op).
			Str("path", path).
			Msg("media tool failed")
		return nil, media.NewOpError(kind, op, path, tail.String(), err)
	}
	return out, nil
}

// lineTail keeps the last n lines written to it.
type lineTail struct {
	mu      sync.Mutex
	lines   []string
	pos     int
	full    bool
	partial strings.Builder
}

func newLineTail(n int) *lineTail {
	return &lineTail{lines: make([]string, n)}
}

func (t *lineTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range p {
		if b == '\n' {
			t.add(t.partial.String())
			t.partial.Reset()
			continue
		}
		t.partial.WriteByte(b)
	}
	return len(p), nil
}

func (t *lineTail) add(line string) {
	t.lines[t.pos] = line
	t.pos = (t.pos + 1) % len(t.lines)
	if t.pos == 0 {
		t.full = true
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ordered []string
	if t.full {
		ordered = append(ordered, t.lines[t.pos:]...)
	}
	ordered = append(ordered, t.lines[:t.pos]...)
	if t.partial.Len() > 0 {
		ordered = append(ordered, t.partial.String())
	}
	return strings.TrimSpace(strings.Join(ordered, "\n"))
}
