package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Default log floors of the linear and mel paths.
const (
	DefaultMagnitudeLogFloor = -50.0
	DefaultMelLogFloor       = -20.0
	DefaultNMels             = 80
)

type options struct {
	log      bool
	logFloor float64
	floorSet bool
	nMels    int
	norm     string
}

// Option tunes Magnitude and MelSpectrogram.
type Option func(*options)

// WithLog toggles natural-log compression. It is on by default.
func WithLog(enabled bool) Option {
	return func(o *options) {
		o.log = enabled
	}
}

// WithLogFloor overrides the path's default log floor.
func WithLogFloor(floor float64) Option {
	return func(o *options) {
		o.logFloor = floor
		o.floorSet = true
	}
}

// WithMels sets the number of mel filters.
func WithMels(n int) Option {
	return func(o *options) {
		o.nMels = n
	}
}

// WithMelNorm selects NormSlaney or NormNone.
func WithMelNorm(norm string) Option {
	return func(o *options) {
		o.norm = norm
	}
}

func buildOptions(defaultFloor float64, opts []Option) options {
	o := options{
		log:   true,
		nMels: DefaultNMels,
		norm:  NormSlaney,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.floorSet {
		o.logFloor = defaultFloor
	}
	return o
}

// Magnitude returns |STFT(y)| as a frames x (NFFT/2+1) matrix, log-compressed
// and clamped at -50 unless configured otherwise.
func Magnitude(y []float64, rate int, p Params, opts ...Option) (*mat.Dense, error) {
	o := buildOptions(DefaultMagnitudeLogFloor, opts)
	spec, err := magnitude(y, rate, p)
	if err != nil {
		return nil, err
	}
	if o.log {
		logClamp(spec, o.logFloor)
	}
	return spec, nil
}

// MelSpectrogram projects the unlogged magnitude spectrogram onto a mel filter
// bank and returns a frames x nMels matrix, log-compressed and clamped at -20
// unless configured otherwise.
func MelSpectrogram(y []float64, rate int, p Params, opts ...Option) (*mat.Dense, error) {
	o := buildOptions(DefaultMelLogFloor, opts)
	spec, err := magnitude(y, rate, p)
	if err != nil {
		return nil, err
	}
	fb, err := MelFilterBank(rate, p.NFFT, o.nMels, 0, float64(rate)/2, o.norm)
	if err != nil {
		return nil, err
	}

	var mel mat.Dense
	mel.Mul(spec, fb.T())
	if o.log {
		logClamp(&mel, o.logFloor)
	}
	return &mel, nil
}

func magnitude(y []float64, rate int, p Params) (*mat.Dense, error) {
	stft, err := STFT(y, rate, p)
	if err != nil {
		return nil, err
	}
	bins := p.NFFT/2 + 1
	spec := mat.NewDense(len(stft), bins, nil)
	for f, row := range stft {
		for k, c := range row {
			spec.Set(f, k, cmplx.Abs(c))
		}
	}
	return spec, nil
}

// logClamp replaces every value with its natural log, raising anything below
// floor (including log(0)) to floor.
func logClamp(m *mat.Dense, floor float64) {
	m.Apply(func(_, _ int, v float64) float64 {
		l := math.Log(v)
		if l < floor || math.IsNaN(l) {
			return floor
		}
		return l
	}, m)
}
