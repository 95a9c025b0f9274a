package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel maps a frequency in Hz onto the Slaney mel scale.
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz is the inverse of HzToMel.
func MelToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return mel * melFSp
}

// Mel filter normalizations.
const (
	NormSlaney = "slaney" // each triangle has unit area in Hz
	NormNone   = ""       // each triangle peaks at 1
)

// MelFilterBank builds an nMels x (nfft/2+1) matrix of triangular filters
// spanning [fmin, fmax] Hz, evenly spaced on the mel scale.
func MelFilterBank(rate, nfft, nMels int, fmin, fmax float64, norm string) (*mat.Dense, error) {
	if nMels <= 0 {
		return nil, fmt.Errorf("mel count must be positive, got %d", nMels)
	}
	if nfft <= 0 {
		return nil, fmt.Errorf("fft size must be positive, got %d", nfft)
	}
	if fmax <= 0 {
		fmax = float64(rate) / 2
	}
	switch norm {
	case NormSlaney, NormNone, "none":
	default:
		return nil, fmt.Errorf("unsupported mel normalization %q", norm)
	}

	bins := nfft/2 + 1
	fftFreqs := make([]float64, bins)
	for k := range fftFreqs {
		if bins > 1 {
			fftFreqs[k] = float64(k) * (float64(rate) / 2) / float64(bins-1)
		}
	}

	lo, hi := HzToMel(fmin), HzToMel(fmax)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = MelToHz(lo + (hi-lo)*float64(i)/float64(nMels+1))
	}

	weights := mat.NewDense(nMels, bins, nil)
	for m := 0; m < nMels; m++ {
		lower, center, upper := melF[m], melF[m+1], melF[m+2]
		scale := 1.0
		if norm == NormSlaney {
			scale = 2.0 / (upper - lower)
		}
		for k, f := range fftFreqs {
			up := (f - lower) / (center - lower)
			down := (upper - f) / (upper - center)
			w := math.Max(0, math.Min(up, down))
			weights.Set(m, k, w*scale)
		}
	}
	return weights, nil
}
