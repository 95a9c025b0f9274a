package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// preEmphasisEpsilon is the smallest coefficient that still triggers the
// pre-emphasis filter. Coefficients at or below it leave the signal untouched.
const preEmphasisEpsilon = 1e-12

// Params holds the framing configuration shared by the spectral extractors.
type Params struct {
	NFFT        int     // FFT size in samples
	HopT        float64 // frame spacing in seconds
	WinT        float64 // window length in seconds
	Window      string  // window function name
	PreEmphasis float64 // y[t] - r*y[t-1] coefficient
}

// DefaultParams returns 25 ms hamming frames every 10 ms with a 400 point FFT.
func DefaultParams() Params {
	return Params{
		NFFT:        400,
		HopT:        0.010,
		WinT:        0.025,
		Window:      "hamming",
		PreEmphasis: 0.97,
	}
}

// FrameLength converts a duration in seconds to a sample count at rate.
func FrameLength(rate int, seconds float64) int {
	return int(math.Round(float64(rate) * seconds))
}

// PreEmphasize returns a filtered copy of y where out[t] = y[t] - r*y[t-1]
// for t >= 1 and out[0] = y[0]. When r <= 1e-12 the copy is unfiltered.
func PreEmphasize(y []float64, r float64) []float64 {
	out := make([]float64, len(y))
	copy(out, y)
	if r <= preEmphasisEpsilon {
		return out
	}
	for t := 1; t < len(y); t++ {
		out[t] = y[t] - r*y[t-1]
	}
	return out
}

// STFT computes the centered short-time Fourier transform of y. The signal is
// reflect-padded by NFFT/2 on both sides, so frame i is centered on sample
// i*hop. The result is frame-major: spectrum[frame][bin], with NFFT/2+1 bins.
func STFT(y []float64, rate int, p Params) ([][]complex128, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", rate)
	}
	if p.NFFT <= 0 {
		return nil, fmt.Errorf("fft size must be positive, got %d", p.NFFT)
	}

	hop := FrameLength(rate, p.HopT)
	if hop <= 0 {
		return nil, fmt.Errorf("hop of %gs at %d Hz is shorter than one sample", p.HopT, rate)
	}
	winLen := FrameLength(rate, p.WinT)
	if winLen <= 0 {
		winLen = p.NFFT
	}

	win, err := Window(p.Window, winLen)
	if err != nil {
		return nil, err
	}
	win, err = padCenter(win, p.NFFT)
	if err != nil {
		return nil, err
	}

	padded, err := reflectPad(PreEmphasize(y, p.PreEmphasis), p.NFFT/2)
	if err != nil {
		return nil, err
	}

	nFrames := 1 + (len(padded)-p.NFFT)/hop
	bins := p.NFFT/2 + 1
	spectrum := make([][]complex128, nFrames)
	frame := make([]float64, p.NFFT)
	for f := 0; f < nFrames; f++ {
		start := f * hop
		for i := range frame {
			frame[i] = padded[start+i] * win[i]
		}
		full := fft.FFTReal(frame)
		row := make([]complex128, bins)
		copy(row, full[:bins])
		spectrum[f] = row
	}
	return spectrum, nil
}

// reflectPad mirrors y around its first and last samples without repeating
// the edge sample, so y must be longer than pad.
func reflectPad(y []float64, pad int) ([]float64, error) {
	if len(y) == 0 {
		return nil, errors.New("empty signal")
	}
	if pad == 0 {
		out := make([]float64, len(y))
		copy(out, y)
		return out, nil
	}
	if len(y) <= pad {
		return nil, fmt.Errorf("signal of %d samples is too short to reflect-pad by %d", len(y), pad)
	}
	n := len(y)
	out := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		out[i] = y[pad-i]
		out[pad+n+i] = y[n-2-i]
	}
	copy(out[pad:], y)
	return out, nil
}
