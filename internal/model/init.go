package model

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
)

// Initialize fills a known variant with small random weights, resolving
// input-dependent dimensions to inputDim and the mu2 table to numSeqs rows.
// Prior log-variances start at zero.
func Initialize(m Model, inputDim, numSeqs int, seed uint64) error {
	var w *weights
	switch v := m.(type) {
	case *FHVAE:
		w = &v.weights
	case *SimpleFHVAE:
		w = &v.weights
	default:
		return fmt.Errorf("cannot initialize model type %q", m.Type())
	}
	if inputDim <= 0 {
		return fmt.Errorf("input dimension must be positive, got %d", inputDim)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for _, name := range slices.Sorted(maps.Keys(w.layout)) {
		shape := w.layout[name]
		concrete := make([]int, len(shape))
		for i, d := range shape {
			switch {
			case d >= 0:
				concrete[i] = d
			case name == "mu2_table":
				concrete[i] = numSeqs
			default:
				concrete[i] = inputDim
			}
		}
		t := NewTensor(concrete...)
		if name != PriorZ1LogVarKey && name != PriorZ2LogVarKey && name != PriorMu2LogVarKey {
			for i := range t.Data {
				t.Data[i] = 0.1 * rng.NormFloat64()
			}
		}
		w.state[name] = t
	}
	return nil
}
