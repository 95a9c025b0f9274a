package model

// OptimizerState is the serializable state of an Adam-style optimizer: its
// hyperparameters, step counter and per-parameter moment buffers.
type OptimizerState struct {
	Name        string               `msgpack:"name" json:"name"`
	Step        int                  `msgpack:"step" json:"step"`
	LR          float64              `msgpack:"lr" json:"lr"`
	Betas       []float64            `msgpack:"betas" json:"betas"`
	Eps         float64              `msgpack:"eps" json:"eps"`
	WeightDecay float64              `msgpack:"weight_decay" json:"weight_decay"`
	Slots       map[string]StateDict `msgpack:"slots" json:"slots"`
}

// Optimizer exposes state for checkpointing.
type Optimizer interface {
	State() OptimizerState
	LoadState(OptimizerState) error
}

// Adam holds optimizer state between checkpoints.
type Adam struct {
	state OptimizerState
}

// NewAdam returns an Adam optimizer with the usual betas and eps.
func NewAdam(lr float64) *Adam {
	return &Adam{state: OptimizerState{
		Name:  "adam",
		LR:    lr,
		Betas: []float64{0.9, 0.999},
		Eps:   1e-8,
		Slots: map[string]StateDict{},
	}}
}

func (a *Adam) State() OptimizerState {
	s := a.state
	s.Betas = append([]float64(nil), a.state.Betas...)
	s.Slots = make(map[string]StateDict, len(a.state.Slots))
	for k, v := range a.state.Slots {
		s.Slots[k] = v.Clone()
	}
	return s
}

func (a *Adam) LoadState(s OptimizerState) error {
	a.state = s
	if a.state.Slots == nil {
		a.state.Slots = map[string]StateDict{}
	}
	return nil
}

// Record advances the step counter and stores moment buffers for a parameter.
func (a *Adam) Record(param string, moments StateDict) {
	a.state.Step++
	a.state.Slots[param] = moments.Clone()
}
