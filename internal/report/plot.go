package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoOffsets is returned when there is nothing to plot.
var ErrNoOffsets = errors.New("no offsets recorded")

// PlotOffsets renders a histogram of offsets (ms) to a PNG at path.
func PlotOffsets(path string, offsets []float64, bins int) error {
	if len(offsets) == 0 {
		return ErrNoOffsets
	}
	if bins <= 0 {
		bins = 20
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Mother-baby offset (n=%d)", len(offsets))
	p.X.Label.Text = "offset (ms)"
	p.Y.Label.Text = "sessions"

	h, err := plotter.NewHist(plotter.Values(offsets), bins)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	p.Add(h, plotter.NewGrid())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
