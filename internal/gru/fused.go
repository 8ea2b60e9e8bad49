package gru

import (
	"github.com/samcharles93/lodgru/internal/tensor"
)

// FusedOptions tunes ForwardFused.
type FusedOptions struct {
	// Workers bounds the number of goroutines each GEMM uses. Zero means
	// GOMAXPROCS.
	Workers int
}

// ForwardFused computes the same recurrence as Forward with a batched layout:
// the whole input is reordered once, bias is added row-wise, and each
// timestep issues one GEMM for the gates and one for the candidate,
// accumulating into the gate buffer in place. Rows of a timestep are split
// across the tensor package's GEMM workers.
//
// Results agree with Forward up to floating point summation order.
func ForwardFused(in Inputs, cfg Config, opts FusedOptions) (*Outputs, error) {
	b, err := Validate(in, cfg)
	if err != nil {
		return nil, err
	}
	d := in.FrameSize()
	out := newOutputs(b, d)
	w := SplitWeight(&in.Weight)
	stateAct := cfg.Activation.Func()
	gateAct := cfg.GateActivation.Func()

	gate := &out.BatchGate
	b.ToBatch(gate, &in.Input)
	if in.Bias != nil {
		tensor.AddRowVec(gate, in.Bias)
	}

	var hPrev tensor.Mat
	tstart := 0
	if in.H0 != nil {
		hPrev = tensor.NewMat(b.Len(), d)
		b.GatherSorted(&hPrev, in.H0)
	} else {
		// With a zero initial state the first timestep needs no GEMM:
		// r ⊙ h_prev is zero and h reduces to u ⊙ c.
		g := b.StepRows(gate, 0)
		rh := b.StepRows(&out.BatchResetHiddenPrev, 0)
		h := b.StepRows(&out.BatchHidden, 0)
		for i := 0; i < g.R; i++ {
			row := g.Row(i)
			tensor.Apply(row[:2*d], gateAct)
			tensor.Apply(row[2*d:], stateAct)
			clear(rh.Row(i))
			hRow := h.Row(i)
			for k := range hRow {
				hRow[k] = row[k] * row[2*d+k]
			}
		}
		hPrev = h
		tstart = 1
	}

	for t := tstart; t < b.MaxLen(); t++ {
		g := b.StepRows(gate, t)
		rh := b.StepRows(&out.BatchResetHiddenPrev, t)
		h := b.StepRows(&out.BatchHidden, t)
		bs := g.R
		hp := hPrev.Rows(0, bs)

		ur := g.Cols(0, 2*d)
		tensor.GemmPar(&ur, &hp, &w.UpdateReset, 1, 1, opts.Workers)
		for i := 0; i < bs; i++ {
			row := g.Row(i)
			tensor.Apply(row[:2*d], gateAct)
			rhRow := rh.Row(i)
			copy(rhRow, hp.Row(i))
			tensor.Mul(rhRow, row[d:2*d])
		}

		c := g.Cols(2*d, 3*d)
		tensor.GemmPar(&c, &rh, &w.Candidate, 1, 1, opts.Workers)
		for i := 0; i < bs; i++ {
			row := g.Row(i)
			tensor.Apply(row[2*d:], stateAct)
			hpRow := hp.Row(i)
			hRow := h.Row(i)
			for k := range hRow {
				u := row[k]
				hRow[k] = u*row[2*d+k] + (1-u)*hpRow[k]
			}
		}
		hPrev = h
	}

	b.ToSequence(&out.Hidden, &out.BatchHidden)
	return out, nil
}
