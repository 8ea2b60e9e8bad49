package gru

import (
	"fmt"
	"math"
	"strings"

	"github.com/samcharles93/lodgru/internal/tensor"
)

// TensorDiff is the comparison result for one output tensor.
type TensorDiff struct {
	Name       string  `json:"name"`
	MaxAbsDiff float64 `json:"max_abs_diff"`
	NaNs       int     `json:"nans,omitempty"`
	Infs       int     `json:"infs,omitempty"`
}

// Report compares two sets of outputs tensor by tensor.
type Report struct {
	Tolerance float64      `json:"tolerance"`
	Diffs     []TensorDiff `json:"diffs"`
	OK        bool         `json:"ok"`
}

// Failed returns the names of the tensors that exceeded the tolerance or
// contained non-finite values.
func (r Report) Failed() []string {
	var names []string
	for _, d := range r.Diffs {
		if !diffOK(d, r.Tolerance) {
			names = append(names, d.Name)
		}
	}
	return names
}

func (r Report) String() string {
	var sb strings.Builder
	for _, d := range r.Diffs {
		status := "ok"
		if !diffOK(d, r.Tolerance) {
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "%-24s max_abs_diff=%.3e %s\n", d.Name, d.MaxAbsDiff, status)
	}
	return sb.String()
}

// Compare checks got against the reference outputs ref. The batch layouts must
// be identical; the tensors are compared element-wise and got is scanned for
// NaN and Inf values.
func Compare(ref, got *Outputs, tol float64) (Report, error) {
	if ref.Hidden.R != got.Hidden.R || ref.Hidden.C != got.Hidden.C {
		return Report{}, fmt.Errorf("%w: hidden [%d, %d] vs [%d, %d]",
			ErrShapeMismatch, ref.Hidden.R, ref.Hidden.C, got.Hidden.R, got.Hidden.C)
	}
	pairs := []struct {
		name     string
		ref, got *tensor.Mat
	}{
		{"hidden", &ref.Hidden, &got.Hidden},
		{"batch_gate", &ref.BatchGate, &got.BatchGate},
		{"batch_reset_hidden_prev", &ref.BatchResetHiddenPrev, &got.BatchResetHiddenPrev},
		{"batch_hidden", &ref.BatchHidden, &got.BatchHidden},
	}
	r := Report{Tolerance: tol, OK: true}
	for _, p := range pairs {
		info := tensor.CheckFinite(p.got)
		d := TensorDiff{
			Name:       p.name,
			MaxAbsDiff: tensor.MaxAbsDiff(p.ref, p.got),
			NaNs:       info.NaNCount,
			Infs:       info.InfCount,
		}
		if !diffOK(d, tol) {
			r.OK = false
		}
		r.Diffs = append(r.Diffs, d)
	}
	return r, nil
}

func diffOK(d TensorDiff, tol float64) bool {
	return d.NaNs == 0 && d.Infs == 0 && !math.IsNaN(d.MaxAbsDiff) && d.MaxAbsDiff <= tol
}
