package gruio

import (
	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/tensor"
)

// RandomSpec describes a synthetic problem. Values are drawn uniformly from
// [0, 1) with tensor.FillRand, each tensor from its own seed offset.
type RandomSpec struct {
	Lengths  []int
	Hidden   int
	Seed     int64
	WithBias bool
	WithH0   bool
}

// RandomInputs builds reproducible engine inputs from rs. Lengths are not
// validated here; gru.Validate reports bad values.
func RandomInputs(rs RandomSpec) gru.Inputs {
	total := 0
	for _, n := range rs.Lengths {
		if n > 0 {
			total += n
		}
	}
	d := max(rs.Hidden, 0)
	in := gru.Inputs{
		Input:   tensor.NewMat(total, 3*d),
		Lengths: append([]int(nil), rs.Lengths...),
		Weight:  tensor.NewMat(d, 3*d),
	}
	tensor.FillRand(&in.Input, rs.Seed)
	tensor.FillRand(&in.Weight, rs.Seed+1)
	if rs.WithBias {
		bias := tensor.NewMat(1, 3*d)
		tensor.FillRand(&bias, rs.Seed+2)
		in.Bias = bias.Data
	}
	if rs.WithH0 {
		h0 := tensor.NewMat(len(rs.Lengths), d)
		tensor.FillRand(&h0, rs.Seed+3)
		in.H0 = &h0
	}
	return in
}
