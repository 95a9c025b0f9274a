package model

import "fmt"

// Prior parameter names shared by both variants.
const (
	PriorZ1LogVarKey  = "pz1.logvar"
	PriorZ2LogVarKey  = "pz2.logvar"
	PriorMu2LogVarKey = "pmu2.logvar"
)

// FHVAE is the recurrent factorized hierarchical VAE with a per-sequence mu2
// lookup table.
type FHVAE struct {
	weights
}

func NewFHVAE(p Params) (*FHVAE, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("fhvae params: %w", err)
	}
	l := make(map[string][]int)
	addLSTM(l, "qz2_x", p.Z2Hus)
	addGaussian(l, "qz2_x", p.Z2Dim, last(p.Z2Hus))
	addLSTM(l, "qz1_x", p.Z1Hus)
	addGaussian(l, "qz1_x", p.Z1Dim, last(p.Z1Hus))
	addLSTM(l, "px_z", p.XHus)
	addGaussian(l, "px_z", -1, last(p.XHus))
	addPriors(l)
	l["mu2_table"] = []int{-1, p.Z2Dim}
	return &FHVAE{weights: newWeights(p, l)}, nil
}

func (m *FHVAE) Type() string { return TypeFHVAE }
func (m *FHVAE) variant()     {}

// SimpleFHVAE replaces the recurrent encoders and decoder with feed-forward
// layers and has no mu2 table.
type SimpleFHVAE struct {
	weights
}

func NewSimpleFHVAE(p Params) (*SimpleFHVAE, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("simple_fhvae params: %w", err)
	}
	l := make(map[string][]int)
	addDense(l, "qz2_x", p.Z2Hus)
	addGaussian(l, "qz2_x", p.Z2Dim, last(p.Z2Hus))
	addDense(l, "qz1_x", p.Z1Hus)
	addGaussian(l, "qz1_x", p.Z1Dim, last(p.Z1Hus))
	addDense(l, "px_z", p.XHus)
	addGaussian(l, "px_z", -1, last(p.XHus))
	addPriors(l)
	return &SimpleFHVAE{weights: newWeights(p, l)}, nil
}

func (m *SimpleFHVAE) Type() string { return TypeSimpleFHVAE }
func (m *SimpleFHVAE) variant()     {}

// Unknown stands in for a checkpoint whose type tag is not recognized. It
// keeps whatever state it is given without validation.
type Unknown struct {
	Tag      string
	params   Params
	state    StateDict
	training bool
}

func (m *Unknown) Type() string         { return m.Tag }
func (m *Unknown) Params() Params       { return m.params }
func (m *Unknown) StateDict() StateDict { return m.state.Clone() }
func (m *Unknown) Training() bool       { return m.training }
func (m *Unknown) Train()               { m.training = true }
func (m *Unknown) Eval()                { m.training = false }
func (m *Unknown) variant()             {}

// LoadStateDict ignores strict; an unknown layout cannot be checked.
func (m *Unknown) LoadStateDict(sd StateDict, _ bool) error {
	m.state = sd.Clone()
	return nil
}

// Priors reads the prior log-variances from a known variant's weights.
func Priors(m Model) (z2LogVar, mu2LogVar float64, err error) {
	var w *weights
	switch v := m.(type) {
	case *FHVAE:
		w = &v.weights
	case *SimpleFHVAE:
		w = &v.weights
	default:
		return 0, 0, fmt.Errorf("model type %q has no known priors", m.Type())
	}
	z2, ok := scalar(w.state[PriorZ2LogVarKey])
	if !ok {
		return 0, 0, fmt.Errorf("%s is not a scalar", PriorZ2LogVarKey)
	}
	mu2, ok := scalar(w.state[PriorMu2LogVarKey])
	if !ok {
		return 0, 0, fmt.Errorf("%s is not a scalar", PriorMu2LogVarKey)
	}
	return z2, mu2, nil
}

func scalar(t Tensor) (float64, bool) {
	if len(t.Data) != 1 {
		return 0, false
	}
	return t.Data[0], true
}

func addLSTM(l map[string][]int, prefix string, hus []int) {
	in := -1
	for i, h := range hus {
		l[fmt.Sprintf("%s.lstm.weight_ih_l%d", prefix, i)] = []int{4 * h, in}
		l[fmt.Sprintf("%s.lstm.weight_hh_l%d", prefix, i)] = []int{4 * h, h}
		l[fmt.Sprintf("%s.lstm.bias_ih_l%d", prefix, i)] = []int{4 * h}
		l[fmt.Sprintf("%s.lstm.bias_hh_l%d", prefix, i)] = []int{4 * h}
		in = h
	}
}

func addDense(l map[string][]int, prefix string, hus []int) {
	in := -1
	for i, h := range hus {
		l[fmt.Sprintf("%s.dense%d.weight", prefix, i)] = []int{h, in}
		l[fmt.Sprintf("%s.dense%d.bias", prefix, i)] = []int{h}
		in = h
	}
}

func addGaussian(l map[string][]int, prefix string, dim, in int) {
	l[prefix+".mu.weight"] = []int{dim, in}
	l[prefix+".mu.bias"] = []int{dim}
	l[prefix+".logvar.weight"] = []int{dim, in}
	l[prefix+".logvar.bias"] = []int{dim}
}

func addPriors(l map[string][]int) {
	l[PriorZ1LogVarKey] = []int{1}
	l[PriorZ2LogVarKey] = []int{1}
	l[PriorMu2LogVarKey] = []int{1}
}
