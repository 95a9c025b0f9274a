package model

import (
	"fmt"
	"sort"
)

// Tensor is a dense row-major array of float64 values.
type Tensor struct {
	Shape []int     `msgpack:"shape" json:"shape"`
	Data  []float64 `msgpack:"data" json:"data"`
}

// NewTensor allocates a zero tensor of the given shape.
func NewTensor(shape ...int) Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return Tensor{Shape: append([]int(nil), shape...), Data: make([]float64, n)}
}

// Scalar returns a one-element tensor holding v.
func Scalar(v float64) Tensor {
	return Tensor{Shape: []int{1}, Data: []float64{v}}
}

// Size is the product of the dimensions.
func (t Tensor) Size() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Validate checks that Data holds exactly Size values.
func (t Tensor) Validate() error {
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", t.Shape)
		}
	}
	if len(t.Data) != t.Size() {
		return fmt.Errorf("shape %v needs %d values, have %d", t.Shape, t.Size(), len(t.Data))
	}
	return nil
}

// Clone returns a deep copy.
func (t Tensor) Clone() Tensor {
	return Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float64(nil), t.Data...),
	}
}

// StateDict maps parameter names to their values.
type StateDict map[string]Tensor

// Keys returns the parameter names in sorted order.
func (sd StateDict) Keys() []string {
	keys := make([]string, 0, len(sd))
	for k := range sd {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies every tensor.
func (sd StateDict) Clone() StateDict {
	out := make(StateDict, len(sd))
	for k, v := range sd {
		out[k] = v.Clone()
	}
	return out
}
