package align

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EstimateLag returns k (in samples) maximising sum_m ref[m]*tgt[m+k] for
// |k| <= maxLag: the target's sample at m+k matches the reference's sample at m.
func EstimateLag(ref, tgt []float64, maxLag int) (int, error) {
	if len(ref) == 0 || len(tgt) == 0 {
		return 0, fmt.Errorf("empty signal")
	}
	r := centered(ref)
	t := centered(tgt)
	if floats.Norm(r, 2) == 0 || floats.Norm(t, 2) == 0 {
		return 0, ErrSilent
	}

	n := nextPow2(len(r) + len(t))
	fft := fourier.NewFFT(n)

	rc := fft.Coefficients(nil, padTo(r, n))
	tc := fft.Coefficients(nil, padTo(t, n))
	for i := range rc {
		rc[i] = complexConj(rc[i]) * tc[i]
	}
	corr := fft.Sequence(nil, rc)

	if maxLag <= 0 || maxLag >= n/2 {
		maxLag = n/2 - 1
	}
	best, bestVal := 0, math.Inf(-1)
	for k := -maxLag; k <= maxLag; k++ {
		idx := k
		if idx < 0 {
			idx += n
		}
		if corr[idx] > bestVal {
			best, bestVal = k, corr[idx]
		}
	}
	return best, nil
}

func centered(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	floats.AddConst(-stat.Mean(out, nil), out)
	return out
}

func padTo(x []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, x)
	return out
}

func nextPow2(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

func complexConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
