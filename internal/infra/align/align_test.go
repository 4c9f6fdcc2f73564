package align

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camsync/internal/media"
)

func noise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func TestEstimateLag(t *testing.T) {
	base := noise(4000, 1)
	tests := []struct {
		name string
		lag  int
	}{
		{"target started earlier", 250},
		{"target started later", -180},
		{"in sync", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref, tgt []float64
			if tt.lag >= 0 {
				ref = base[tt.lag:]
				tgt = base
			} else {
				ref = base
				tgt = base[-tt.lag:]
			}
			got, err := EstimateLag(ref, tgt, 1000)
			require.NoError(t, err)
			assert.Equal(t, tt.lag, got)
		})
	}
}

func TestEstimateLag_Silent(t *testing.T) {
	_, err := EstimateLag(make([]float64, 100), noise(100, 2), 10)
	assert.ErrorIs(t, err, ErrSilent)

	_, err = EstimateLag(nil, noise(10, 2), 10)
	assert.Error(t, err)
}

type shiftCall struct {
	in, out string
	offset  time.Duration
}

type fakeSource struct {
	mu     sync.Mutex
	pcm    map[string][]float64
	shifts []shiftCall
}

func (f *fakeSource) ExtractPCM(_ context.Context, in string, _ int, _ float64) ([]float64, error) {
	return f.pcm[in], nil
}

func (f *fakeSource) Shift(_ context.Context, in, out string, offset time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shifts = append(f.shifts, shiftCall{in, out, offset})
	return os.WriteFile(out, []byte(in), 0o644)
}

func TestAligner_PairwiseNegativeOffsetTrimsReference(t *testing.T) {
	dir := t.TempDir()
	base := noise(8000, 3)
	src := &fakeSource{pcm: map[string][]float64{
		"ref.mp4": base,
		"tgt.mp4": base[800:], // target started 100ms after the reference
	}}
	a := New(src, Config{SampleRate: 8000, MaxLag: time.Second}, zerolog.Nop())

	off, err := a.Align(context.Background(), media.AlignRequest{
		Reference:    "ref.mp4",
		Target:       "tgt.mp4",
		ReferenceOut: filepath.Join(dir, "mother.mp4"),
		TargetOut:    filepath.Join(dir, "baby.mp4"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-100), off)
	assert.Equal(t, []shiftCall{
		{"ref.mp4", filepath.Join(dir, "mother.mp4"), 100 * time.Millisecond},
		{"tgt.mp4", filepath.Join(dir, "baby.mp4"), 0},
	}, src.shifts)
}

func TestAligner_OneSidedPadsTarget(t *testing.T) {
	dir := t.TempDir()
	base := noise(8000, 4)
	src := &fakeSource{pcm: map[string][]float64{
		"ref.mp4": base,
		"tgt.mp4": base[400:],
	}}
	a := New(src, Config{SampleRate: 8000, MaxLag: time.Second}, zerolog.Nop())

	off, err := a.Align(context.Background(), media.AlignRequest{
		Reference: "ref.mp4",
		Target:    "tgt.mp4",
		TargetOut: filepath.Join(dir, "window.mp4"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-50), off)
	require.Len(t, src.shifts, 1)
	assert.Equal(t, -50*time.Millisecond, src.shifts[0].offset)
}

func TestAligner_ExistingOutputsUntouched(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "baby.mp4")
	require.NoError(t, os.WriteFile(out, []byte("done"), 0o644))

	base := noise(4000, 5)
	src := &fakeSource{pcm: map[string][]float64{"ref.mp4": base, "tgt.mp4": base}}
	a := New(src, Config{SampleRate: 8000}, zerolog.Nop())

	_, err := a.Align(context.Background(), media.AlignRequest{Reference: "ref.mp4", Target: "tgt.mp4", TargetOut: out})
	require.NoError(t, err)
	assert.Empty(t, src.shifts)
	got, _ := os.ReadFile(out)
	assert.Equal(t, "done", string(got))
}
