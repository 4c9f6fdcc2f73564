package media

import (
	"context"
	"time"
)

// Prober reads stream metadata.
type Prober interface {
	// ProbeDuration returns the container duration in seconds.
	ProbeDuration(ctx context.Context, path string) (float64, error)
	// ProbeFPS returns the average frame rate of the first video stream.
	ProbeFPS(ctx context.Context, path string) (float64, error)
}

// Transcoder resamples a video to a fixed frame rate.
type Transcoder interface {
	Transcode(ctx context.Context, in, out string, fps float64) error
}

// Trimmer extracts [start, start+duration) without re-encoding.
type Trimmer interface {
	Trim(ctx context.Context, in, out string, start, duration time.Duration) error
}

// Compositor renders a multi-view video.
type Compositor interface {
	Composite(ctx context.Context, spec CompositeSpec) error
}

// Snapshotter grabs a single frame as an image.
type Snapshotter interface {
	Snapshot(ctx context.Context, in, out string, at time.Duration) error
}

// Engine bundles every capability of the subprocess media engine.
type Engine interface {
	Prober
	Transcoder
	Trimmer
	Compositor
	Snapshotter
}

// AlignRequest asks the alignment collaborator to map Target onto Reference's timeline.
// ReferenceOut is optional: when set, the reference is rewritten as well so both
// outputs start at the same instant (pairwise mode). TargetOut is always written.
type AlignRequest struct {
	Reference    string
	Target       string
	ReferenceOut string
	TargetOut    string
}

// Aligner computes and applies the time offset between two recordings. The returned
// offset is in milliseconds; positive means the target started recording before the
// reference.
type Aligner interface {
	Align(ctx context.Context, req AlignRequest) (int64, error)
}

// Layout selects a composite arrangement.
type Layout int

const (
	// LayoutVStack stacks two inputs vertically.
	LayoutVStack Layout = iota
	// LayoutGrid2x2 arranges four inputs as top-left, top-right, bottom-left, bottom-right.
	LayoutGrid2x2
)

func (l Layout) String() string {
	switch l {
	case LayoutVStack:
		return "vstack"
	case LayoutGrid2x2:
		return "grid2x2"
	default:
		return "unknown"
	}
}

// Slot is one tile of a composite. A Filler slot has no Path and is rendered as a
// black, silent clip of the canvas size, frame rate and duration.
type Slot struct {
	Path   string
	Filler bool
}

// CompositeSpec fully describes one composite render.
type CompositeSpec struct {
	Layout Layout
	Slots  []Slot
	// AudioSlot is the index of the real slot whose audio is mapped; -1 for none.
	AudioSlot int
	Output    string
	Width     int
	Height    int
	FPS       float64
	// Duration (seconds) sizes filler clips.
	Duration float64
}

// RealSlots counts the slots backed by an actual recording.
func (s CompositeSpec) RealSlots() int {
	n := 0
	for _, sl := range s.Slots {
		if !sl.Filler {
			n++
		}
	}
	return n
}
