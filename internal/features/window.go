package features

import (
	"fmt"
	"math"
	"strings"
)

// Window returns a periodic window of length n, the form used for spectral
// analysis (the DFT-even variant, cosine period n rather than n-1).
func Window(name string, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("window length must be positive, got %d", n)
	}
	w := make([]float64, n)
	N := float64(n)
	switch strings.ToLower(name) {
	case "hamming":
		for i := range w {
			w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/N)
		}
	case "hann", "hanning":
		for i := range w {
			w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/N)
		}
	case "blackman":
		for i := range w {
			x := 2 * math.Pi * float64(i) / N
			w[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		}
	case "boxcar", "rectangular", "ones":
		for i := range w {
			w[i] = 1
		}
	default:
		return nil, fmt.Errorf("unsupported window %q", name)
	}
	return w, nil
}

// padCenter zero-pads w symmetrically to length size.
func padCenter(w []float64, size int) ([]float64, error) {
	if len(w) > size {
		return nil, fmt.Errorf("window length %d exceeds fft size %d", len(w), size)
	}
	out := make([]float64, size)
	copy(out[(size-len(w))/2:], w)
	return out, nil
}
