package features

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kind names a feature type stored by the materializer.
type Kind string

const (
	KindFbank Kind = "fbank" // log mel filter bank
	KindSpec  Kind = "spec"  // log magnitude spectrogram
)

// ParseKind validates a feature type name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFbank, KindSpec:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown feature type %q (want fbank or spec)", s)
}

// Generate computes the features stored per utterance. The FFT size equals the
// window length in samples; the remaining framing uses DefaultParams.
func Generate(kind Kind, y []float64, rate int, winT, hopT float64, nMels int) (*mat.Dense, error) {
	p := DefaultParams()
	p.NFFT = FrameLength(rate, winT)
	p.WinT = winT
	p.HopT = hopT

	if kind == KindFbank {
		return MelSpectrogram(y, rate, p, WithMels(nMels))
	}
	return Magnitude(y, rate, p)
}
