package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ManuGH/camsync/internal/ledger"
)

// OffsetStats summarises the subject-pair offsets recorded by the sync ledger.
type OffsetStats struct {
	Count    int // entries with an offset
	Missing  int // completed without an offset (single subject or no cameras)
	MeanMS   float64
	StdMS    float64
	MedianMS float64
	MinMS    float64
	MaxMS    float64
}

// Offsets extracts the recorded offsets in milliseconds.
func Offsets(entries []ledger.Entry) []float64 {
	out := make([]float64, 0, len(entries))
	for _, e := range entries {
		if e.Offset != nil {
			out = append(out, float64(*e.Offset))
		}
	}
	return out
}

// ComputeOffsetStats returns zero statistics (with NaN-free fields) for no offsets.
func ComputeOffsetStats(entries []ledger.Entry) OffsetStats {
	xs := Offsets(entries)
	s := OffsetStats{Count: len(xs), Missing: len(entries) - len(xs)}
	if len(xs) == 0 {
		return s
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s.MeanMS = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.StdMS = stat.StdDev(sorted, nil)
	}
	s.MedianMS = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.MinMS = floats.Min(sorted)
	s.MaxMS = floats.Max(sorted)
	if math.IsNaN(s.StdMS) {
		s.StdMS = 0
	}
	return s
}
