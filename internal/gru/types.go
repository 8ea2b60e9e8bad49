// Package gru computes the forward pass of a gated recurrent unit over a batch
// of variable-length sequences packed into one flat tensor.
//
// Input already holds the input projections for the update gate, reset gate
// and candidate of every timestep (T x 3D). For each timestep the recurrence
// computes
//
//	u = gateAct(h_prev·W_u + x_u + b_u)
//	r = gateAct(h_prev·W_r + x_r + b_r)
//	c = stateAct((r ⊙ h_prev)·W_c + x_c + b_c)
//	h = u ⊙ c + (1 - u) ⊙ h_prev
//
// where Weight packs [W_u W_r] as a D x 2D block followed by W_c as a D x D
// block in its flat storage.
package gru

import (
	"github.com/samcharles93/lodgru/internal/lod"
	"github.com/samcharles93/lodgru/internal/tensor"
)

// Inputs are the tensors of one forward call. Bias and H0 are optional: a nil
// Bias behaves as a zero 1 x 3D row and a nil H0 as a zero N x D matrix.
type Inputs struct {
	Input   tensor.Mat
	Lengths []int
	Weight  tensor.Mat
	Bias    []float64
	H0      *tensor.Mat
}

// Config holds the per-call attributes.
type Config struct {
	Activation     Activation
	GateActivation Activation
	Reverse        bool
}

// DefaultConfig returns tanh for the candidate, sigmoid for the gates, and
// forward direction.
func DefaultConfig() Config {
	return Config{
		Activation:     Tanh,
		GateActivation: Sigmoid,
	}
}

// Outputs of a forward call. Hidden is in the original flat row order. The
// Batch* tensors are in batched order (see lod.Batch.Offsets) and exist for
// comparing kernels against each other.
type Outputs struct {
	Hidden               tensor.Mat
	BatchGate            tensor.Mat
	BatchResetHiddenPrev tensor.Mat
	BatchHidden          tensor.Mat
	Batch                lod.Batch
}

// FrameSize returns D, the hidden width implied by the weight.
func (in *Inputs) FrameSize() int {
	return in.Weight.R
}

func newOutputs(b lod.Batch, d int) *Outputs {
	t := b.Total()
	return &Outputs{
		Hidden:               tensor.NewMat(t, d),
		BatchGate:            tensor.NewMat(t, 3*d),
		BatchResetHiddenPrev: tensor.NewMat(t, d),
		BatchHidden:          tensor.NewMat(t, d),
		Batch:                b,
	}
}
