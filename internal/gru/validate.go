package gru

import (
	"fmt"

	"github.com/samcharles93/lodgru/internal/lod"
	"github.com/samcharles93/lodgru/internal/tensor"
)

// Validate checks cfg and the shapes of in, and builds the batch index. Every
// error wraps one of ErrInvalidInput, ErrShapeMismatch or
// ErrUnsupportedActivation.
//
// All shape checks run before the batch index is built, so lengths that do
// not match the input rows never reach an allocation sized by them.
func Validate(in Inputs, cfg Config) (lod.Batch, error) {
	if !cfg.Activation.Valid() {
		return lod.Batch{}, fmt.Errorf("%w: activation %s", ErrUnsupportedActivation, cfg.Activation)
	}
	if !cfg.GateActivation.Valid() {
		return lod.Batch{}, fmt.Errorf("%w: gate activation %s", ErrUnsupportedActivation, cfg.GateActivation)
	}

	total, err := lod.TotalRows(in.Lengths)
	if err != nil {
		return lod.Batch{}, err
	}

	d := in.Weight.R
	if d <= 0 {
		return lod.Batch{}, fmt.Errorf("%w: weight has %d rows", ErrShapeMismatch, d)
	}
	if in.Weight.C != 3*d {
		return lod.Batch{}, fmt.Errorf("%w: weight must be [%d, %d], got [%d, %d]",
			ErrShapeMismatch, d, 3*d, in.Weight.R, in.Weight.C)
	}
	if len(in.Weight.Data) < d*3*d || in.Weight.Stride != in.Weight.C {
		return lod.Batch{}, fmt.Errorf("%w: weight must be a compact [%d, %d] matrix", ErrShapeMismatch, d, 3*d)
	}
	if in.Input.C != 3*d {
		return lod.Batch{}, fmt.Errorf("%w: input width must be 3 times frame size %d, got %d",
			ErrShapeMismatch, d, in.Input.C)
	}
	if in.Input.R != total {
		return lod.Batch{}, fmt.Errorf("%w: input has %d rows but sequence lengths sum to %d",
			ErrShapeMismatch, in.Input.R, total)
	}
	if !storageFits(&in.Input) {
		return lod.Batch{}, fmt.Errorf("%w: input storage too short for [%d, %d]",
			ErrShapeMismatch, in.Input.R, in.Input.C)
	}
	if in.Bias != nil && len(in.Bias) != 3*d {
		return lod.Batch{}, fmt.Errorf("%w: bias must be [1, %d], got %d values",
			ErrShapeMismatch, 3*d, len(in.Bias))
	}
	if in.H0 != nil {
		if in.H0.R != len(in.Lengths) || in.H0.C != d {
			return lod.Batch{}, fmt.Errorf("%w: h0 must be [%d, %d], got [%d, %d]",
				ErrShapeMismatch, len(in.Lengths), d, in.H0.R, in.H0.C)
		}
		if !storageFits(in.H0) {
			return lod.Batch{}, fmt.Errorf("%w: h0 storage too short for [%d, %d]",
				ErrShapeMismatch, in.H0.R, in.H0.C)
		}
	}

	return lod.NewBatch(in.Lengths, cfg.Reverse)
}

// storageFits reports whether m.Data holds every row m.Row can address.
func storageFits(m *tensor.Mat) bool {
	if m.R < 0 || m.C < 0 || m.Stride < m.C {
		return false
	}
	if m.R == 0 || m.C == 0 {
		return true
	}
	if len(m.Data) < m.C {
		return false
	}
	return (len(m.Data)-m.C)/m.Stride >= m.R-1
}
