// Package model holds the FHVAE model variants as weight containers that can
// be persisted and restored from checkpoints. Training and inference live
// outside this package.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Known model type tags.
const (
	TypeFHVAE       = "fhvae"
	TypeSimpleFHVAE = "simple_fhvae"
)

// ErrStateMismatch is returned by strict loading when names or shapes differ.
var ErrStateMismatch = errors.New("state dict mismatch")

// Params are the five constructor values stored with every checkpoint, in
// this order: z1 hidden units, z2 hidden units, z1 size, z2 size, decoder
// hidden units.
type Params struct {
	Z1Hus []int `msgpack:"z1_hus" json:"z1_hus" yaml:"z1_hus"`
	Z2Hus []int `msgpack:"z2_hus" json:"z2_hus" yaml:"z2_hus"`
	Z1Dim int   `msgpack:"z1_dim" json:"z1_dim" yaml:"z1_dim"`
	Z2Dim int   `msgpack:"z2_dim" json:"z2_dim" yaml:"z2_dim"`
	XHus  []int `msgpack:"x_hus" json:"x_hus" yaml:"x_hus"`
}

// DefaultParams matches the usual FHVAE configuration.
func DefaultParams() Params {
	return Params{
		Z1Hus: []int{128, 128},
		Z2Hus: []int{128, 128},
		Z1Dim: 16,
		Z2Dim: 16,
		XHus:  []int{128, 128},
	}
}

// Validate rejects empty layer specs and non-positive sizes.
func (p Params) Validate() error {
	for name, hus := range map[string][]int{"z1_hus": p.Z1Hus, "z2_hus": p.Z2Hus, "x_hus": p.XHus} {
		if len(hus) == 0 {
			return fmt.Errorf("%s is empty", name)
		}
		for _, h := range hus {
			if h <= 0 {
				return fmt.Errorf("%s has non-positive width %d", name, h)
			}
		}
	}
	if p.Z1Dim <= 0 || p.Z2Dim <= 0 {
		return fmt.Errorf("latent sizes must be positive, got z1=%d z2=%d", p.Z1Dim, p.Z2Dim)
	}
	return nil
}

// Model is a closed set of variants: *FHVAE, *SimpleFHVAE and *Unknown.
// Switch on the concrete type before using variant-specific behavior.
type Model interface {
	Type() string
	Params() Params
	StateDict() StateDict
	LoadStateDict(sd StateDict, strict bool) error
	Training() bool
	Train()
	Eval()

	variant()
}

// New constructs a known model variant from its tag, or an *Unknown that
// carries the tag when it is not recognized.
func New(tag string, p Params) (Model, error) {
	switch tag {
	case TypeFHVAE:
		return NewFHVAE(p)
	case TypeSimpleFHVAE:
		return NewSimpleFHVAE(p)
	}
	return &Unknown{Tag: tag, params: p, training: true}, nil
}

// Known reports whether tag names a constructible variant.
func Known(tag string) bool {
	return tag == TypeFHVAE || tag == TypeSimpleFHVAE
}

// weights is the storage shared by the concrete variants. A layout dimension
// of -1 depends on the input feature size and matches any length.
type weights struct {
	params   Params
	layout   map[string][]int
	state    StateDict
	training bool
}

func newWeights(p Params, layout map[string][]int) weights {
	state := make(StateDict, len(layout))
	for name, shape := range layout {
		concrete := make([]int, len(shape))
		for i, d := range shape {
			if d < 0 {
				d = 0
			}
			concrete[i] = d
		}
		state[name] = NewTensor(concrete...)
	}
	return weights{params: p, layout: layout, state: state, training: true}
}

func (w *weights) Params() Params       { return w.params }
func (w *weights) StateDict() StateDict { return w.state.Clone() }
func (w *weights) Training() bool       { return w.training }
func (w *weights) Train()               { w.training = true }
func (w *weights) Eval()                { w.training = false }

// LoadStateDict copies sd into the model. Strict loading requires the exact
// parameter set with matching shapes; otherwise unknown names are ignored and
// missing names keep their current values.
func (w *weights) LoadStateDict(sd StateDict, strict bool) error {
	if strict {
		var problems []string
		for name, shape := range w.layout {
			t, ok := sd[name]
			if !ok {
				problems = append(problems, "missing "+name)
				continue
			}
			if !shapeMatches(shape, t.Shape) {
				problems = append(problems, fmt.Sprintf("%s: shape %v, want %v", name, t.Shape, shape))
			}
		}
		for _, name := range sd.Keys() {
			if _, ok := w.layout[name]; !ok {
				problems = append(problems, "unexpected "+name)
			}
		}
		if len(problems) > 0 {
			return fmt.Errorf("%w: %s", ErrStateMismatch, strings.Join(problems, "; "))
		}
	}

	for name, t := range sd {
		if _, ok := w.layout[name]; !ok {
			continue
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		w.state[name] = t.Clone()
	}
	return nil
}

func shapeMatches(layout, got []int) bool {
	if len(layout) != len(got) {
		return false
	}
	for i, d := range layout {
		if d >= 0 && d != got[i] {
			return false
		}
	}
	return true
}

func last(xs []int) int {
	return xs[len(xs)-1]
}
