package gru

import (
	"github.com/samcharles93/lodgru/internal/lod"
	"github.com/samcharles93/lodgru/internal/tensor"
)

// Forward runs the reference recurrence. All validation happens before any
// numeric work; on error no output is returned.
func Forward(in Inputs, cfg Config) (*Outputs, error) {
	b, err := Validate(in, cfg)
	if err != nil {
		return nil, err
	}
	d := in.FrameSize()
	out := newOutputs(b, d)
	w := SplitWeight(&in.Weight)
	stateAct := cfg.Activation.Func()
	gateAct := cfg.GateActivation.Func()

	// Initial hidden state in sorted order; zero when H0 is absent.
	hPrev := tensor.NewMat(b.Len(), d)
	if in.H0 != nil {
		b.GatherSorted(&hPrev, in.H0)
	}
	x := tensor.NewMat(b.Len(), 3*d)

	for t, rows := range b.Steps {
		bs := len(rows)
		xs := x.Rows(0, bs)
		lod.Gather(&xs, &in.Input, rows)

		// Sequences leave from the tail of the sorted order, so the
		// surviving hidden states are a prefix of the previous step's.
		hp := hPrev.Rows(0, bs)
		step := StepOutputs{
			Gate:            b.StepRows(&out.BatchGate, t),
			ResetHiddenPrev: b.StepRows(&out.BatchResetHiddenPrev, t),
			Hidden:          b.StepRows(&out.BatchHidden, t),
		}
		Step(step, &xs, &hp, w, in.Bias, stateAct, gateAct)

		lod.Scatter(&out.Hidden, &step.Hidden, rows)
		hPrev = step.Hidden
	}
	return out, nil
}
