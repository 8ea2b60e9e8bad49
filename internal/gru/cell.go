package gru

import (
	"github.com/samcharles93/lodgru/internal/tensor"
)

// Weights is the hidden-to-hidden weight split into its two blocks.
type Weights struct {
	// UpdateReset is the D x 2D block feeding the update and reset gates.
	UpdateReset tensor.Mat
	// Candidate is the D x D block feeding the candidate.
	Candidate tensor.Mat
}

// SplitWeight views the flat storage of a compact D x 3D weight as a D x 2D
// block followed by a D x D block. The views share storage with w.
func SplitWeight(w *tensor.Mat) Weights {
	d := w.R
	ur := 2 * d * d
	return Weights{
		UpdateReset: tensor.NewMatFromData(d, 2*d, w.Data[:ur]),
		Candidate:   tensor.NewMatFromData(d, d, w.Data[ur:ur+d*d]),
	}
}

// StepOutputs are the caller-owned buffers one Step fills, each with one row
// per active sequence.
type StepOutputs struct {
	Gate            tensor.Mat // B x 3D: u, r, c
	ResetHiddenPrev tensor.Mat // B x D: r ⊙ h_prev
	Hidden          tensor.Mat // B x D: new hidden state
}

// Step evaluates one timestep of the recurrence for B active sequences. x
// holds the B input rows (B x 3D) and hPrev the previous hidden state (B x D).
// A nil bias is treated as zero. Step only writes to out.
func Step(out StepOutputs, x, hPrev *tensor.Mat, w Weights, bias []float64, stateAct, gateAct func(float64) float64) {
	bs := x.R
	d := hPrev.C
	if hPrev.R != bs || x.C != 3*d {
		panic("gru step: input shape mismatch")
	}
	if out.Gate.R != bs || out.ResetHiddenPrev.R != bs || out.Hidden.R != bs {
		panic("gru step: output shape mismatch")
	}

	// g = x + bias
	for i := 0; i < bs; i++ {
		g := out.Gate.Row(i)
		copy(g, x.Row(i))
		if bias != nil {
			tensor.Add(g, bias)
		}
	}

	// [u r] = gateAct(h_prev·W_ur + g[:, :2D])
	ur := out.Gate.Cols(0, 2*d)
	mulAddAct(&ur, hPrev, &w.UpdateReset, gateAct)

	// r ⊙ h_prev
	for i := 0; i < bs; i++ {
		r := out.Gate.Row(i)[d : 2*d]
		rh := out.ResetHiddenPrev.Row(i)
		copy(rh, hPrev.Row(i))
		tensor.Mul(rh, r)
	}

	// c = stateAct((r ⊙ h_prev)·W_c + g[:, 2D:])
	c := out.Gate.Cols(2*d, 3*d)
	mulAddAct(&c, &out.ResetHiddenPrev, &w.Candidate, stateAct)

	// h = u ⊙ c + (1 - u) ⊙ h_prev
	for i := 0; i < bs; i++ {
		g := out.Gate.Row(i)
		hp := hPrev.Row(i)
		h := out.Hidden.Row(i)
		for k := range h {
			u := g[k]
			h[k] = u*g[2*d+k] + (1-u)*hp[k]
		}
	}
}

// mulAddAct computes dst = act(a·w + dst). Each dot product is accumulated
// from zero before dst's previous value is added.
func mulAddAct(dst, a, w *tensor.Mat, act func(float64) float64) {
	if a.C != w.R || dst.R != a.R || dst.C != w.C {
		panic("gru: mul-add dimension mismatch")
	}
	for i := 0; i < a.R; i++ {
		aRow := a.Row(i)
		out := dst.Row(i)
		for j := range out {
			var sum float64
			for k, av := range aRow {
				sum += av * w.Data[k*w.Stride+j]
			}
			out[j] = act(sum + out[j])
		}
	}
}
