// Package testutil provides in-memory stand-ins for the media engine and aligner.
// Fakes write small marker files to every output path so the pipeline's
// existence-based idempotency behaves exactly as with the real tools.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/camsync/internal/media"
)

// Call is one recorded invocation.
type Call struct {
	Op   string
	Path string // primary input
	Out  string
}

// Recorder collects calls from concurrent sessions.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the recorded operation names, optionally filtered.
func (r *Recorder) Ops(filter ...string) []string {
	var out []string
	for _, c := range r.Calls() {
		if len(filter) == 0 || contains(filter, c.Op) {
			out = append(out, c.Op)
		}
	}
	return out
}

// Reset forgets every recorded call.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FakeEngine implements media.Engine.
type FakeEngine struct {
	Recorder

	// Durations and FPS are keyed by file base name ("mother.mp4"); defaults apply
	// when a key is missing.
	Durations       map[string]float64
	FPS             map[string]float64
	DefaultDuration float64
	DefaultFPS      float64

	// FailOps makes the named operation fail; FailPaths restricts the failure to
	// inputs or outputs containing one of the substrings.
	FailOps   map[string]bool
	FailPaths []string

	Specs  []media.CompositeSpec
	specMu sync.Mutex
}

var _ media.Engine = (*FakeEngine)(nil)

// NewFakeEngine returns an engine reporting 600s / 60fps for every file.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		Durations:       map[string]float64{},
		FPS:             map[string]float64{},
		DefaultDuration: 600,
		DefaultFPS:      60,
		FailOps:         map[string]bool{},
	}
}

func (f *FakeEngine) fail(op, in, out string) bool {
	if !f.FailOps[op] {
		return false
	}
	if len(f.FailPaths) == 0 {
		return true
	}
	for _, p := range f.FailPaths {
		if strings.Contains(in, p) || strings.Contains(out, p) {
			return true
		}
	}
	return false
}

func (f *FakeEngine) ProbeDuration(_ context.Context, path string) (float64, error) {
	f.record(Call{Op: "probe_duration", Path: path})
	if f.fail("probe_duration", path, "") {
		return 0, media.NewOpError(media.ErrProbe, "ffprobe", path, "", fmt.Errorf("injected"))
	}
	if d, ok := f.Durations[filepath.Base(path)]; ok {
		return d, nil
	}
	return f.DefaultDuration, nil
}

func (f *FakeEngine) ProbeFPS(_ context.Context, path string) (float64, error) {
	f.record(Call{Op: "probe_fps", Path: path})
	if f.fail("probe_fps", path, "") {
		return 0, media.NewOpError(media.ErrProbe, "ffprobe", path, "", fmt.Errorf("injected"))
	}
	if v, ok := f.FPS[filepath.Base(path)]; ok {
		return v, nil
	}
	return f.DefaultFPS, nil
}

func (f *FakeEngine) Transcode(_ context.Context, in, out string, _ float64) error {
	f.record(Call{Op: "transcode", Path: in, Out: out})
	if f.fail("transcode", in, out) {
		return media.NewOpError(media.ErrTranscode, "transcode", out, "", fmt.Errorf("injected"))
	}
	return WriteMarker(out, "transcode:"+in)
}

func (f *FakeEngine) Trim(_ context.Context, in, out string, start, duration time.Duration) error {
	f.record(Call{Op: "trim", Path: in, Out: out})
	if f.fail("trim", in, out) {
		return media.NewOpError(media.ErrTrim, "trim", out, "", fmt.Errorf("injected"))
	}
	return WriteMarker(out, fmt.Sprintf("trim:%s:%s+%s", in, start, duration))
}

func (f *FakeEngine) Composite(_ context.Context, spec media.CompositeSpec) error {
	f.record(Call{Op: "composite", Out: spec.Output})
	f.specMu.Lock()
	f.Specs = append(f.Specs, spec)
	f.specMu.Unlock()
	if f.fail("composite", "", spec.Output) {
		return media.NewOpError(media.ErrComposite, "composite", spec.Output, "", fmt.Errorf("injected"))
	}
	return WriteMarker(spec.Output, "composite")
}

func (f *FakeEngine) Snapshot(_ context.Context, in, out string, _ time.Duration) error {
	f.record(Call{Op: "snapshot", Path: in, Out: out})
	if f.fail("snapshot", in, out) {
		return media.NewOpError(media.ErrComposite, "snapshot", out, "", fmt.Errorf("injected"))
	}
	return WriteMarker(out, "snapshot:"+in)
}

// SpecFor returns the last composite spec rendered to output.
func (f *FakeEngine) SpecFor(output string) (media.CompositeSpec, bool) {
	f.specMu.Lock()
	defer f.specMu.Unlock()
	for i := len(f.Specs) - 1; i >= 0; i-- {
		if f.Specs[i].Output == output {
			return f.Specs[i], true
		}
	}
	return media.CompositeSpec{}, false
}

// FakeAligner implements media.Aligner with a fixed offset per target base name.
type FakeAligner struct {
	Recorder
	Offsets map[string]int64
	Fail    bool
}

var _ media.Aligner = (*FakeAligner)(nil)

func (a *FakeAligner) Align(_ context.Context, req media.AlignRequest) (int64, error) {
	a.record(Call{Op: "align", Path: req.Reference, Out: req.TargetOut})
	if a.Fail {
		return 0, media.NewOpError(media.ErrAlign, "align", req.Target, "", fmt.Errorf("injected"))
	}
	if req.ReferenceOut != "" {
		if err := WriteMarker(req.ReferenceOut, "aligned-ref:"+req.Reference); err != nil {
			return 0, err
		}
	}
	if err := WriteMarker(req.TargetOut, "aligned:"+req.Target+"@"+req.Reference); err != nil {
		return 0, err
	}
	return a.Offsets[filepath.Base(req.Target)], nil
}

// WriteMarker creates path (and parents) with the given content.
func WriteMarker(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// Snapshot returns every regular file under root mapped to its content, for
// byte-identity checks across runs.
func Snapshot(root string) (map[string]string, error) {
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		out[rel] = string(data)
		return nil
	})
	return out, err
}

// SortedKeys is a small helper for deterministic assertions.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
