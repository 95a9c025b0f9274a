// Package estimator computes per-sequence latent statistics from a trained
// model's posterior.
package estimator

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/FHVAEKit/internal/dataset"
)

// Model is the part of a trained FHVAE the estimator needs. Forward runs the
// encoder on one batch; Z2Mean then returns one posterior z2 mean per
// segment of that batch, in batch order.
type Model interface {
	Eval()
	Forward(ctx context.Context, b dataset.Batch, numSeqs int) error
	Z2Mean() [][]float64
	PriorZ2LogVar() float64
	PriorMu2LogVar() float64
}

// Loader yields batches until ok is false.
type Loader interface {
	Next() (b dataset.Batch, ok bool, err error)
}

// EstimateMu2 returns, for every sequence that received at least one
// segment, the shrunk mean
//
//	sum(z2) / (n + exp(z2_logvar) / exp(mu2_logvar))
//
// where n is that sequence's segment count. Sequences never seen by the
// loader have no entry. The model is switched to evaluation mode first.
func EstimateMu2(ctx context.Context, m Model, loader Loader, numSeqs int) (map[int][]float64, error) {
	m.Eval()

	sums := make(map[int][]float64)
	counts := make(map[int]int)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, ok, err := loader.Next()
		if err != nil {
			return nil, fmt.Errorf("loading batch: %w", err)
		}
		if !ok {
			break
		}
		if err := m.Forward(ctx, b, numSeqs); err != nil {
			return nil, fmt.Errorf("forward: %w", err)
		}

		z2 := m.Z2Mean()
		if len(z2) != len(b.SeqIDs) {
			return nil, fmt.Errorf("model returned %d z2 means for %d segments", len(z2), len(b.SeqIDs))
		}
		for i, seq := range b.SeqIDs {
			if seq < 0 || seq >= numSeqs {
				return nil, fmt.Errorf("sequence id %d out of range [0,%d)", seq, numSeqs)
			}
			acc, seen := sums[seq]
			if !seen {
				acc = make([]float64, len(z2[i]))
				sums[seq] = acc
			} else if len(acc) != len(z2[i]) {
				return nil, fmt.Errorf("sequence %d: z2 dim changed from %d to %d", seq, len(acc), len(z2[i]))
			}
			floats.Add(acc, z2[i])
			counts[seq]++
		}
	}

	r := math.Exp(m.PriorZ2LogVar()) / math.Exp(m.PriorMu2LogVar())

	mu2 := make(map[int][]float64, len(sums))
	for seq, acc := range sums {
		est := make([]float64, len(acc))
		floats.ScaleTo(est, 1/(float64(counts[seq])+r), acc)
		mu2[seq] = est
	}
	return mu2, nil
}
