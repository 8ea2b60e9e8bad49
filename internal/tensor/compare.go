package tensor

import "math"

// MaxAbsDiff returns the largest absolute element-wise difference between a
// and b. Shapes must match. A NaN on either side yields +Inf.
func MaxAbsDiff(a, b *Mat) float64 {
	if a.R != b.R || a.C != b.C {
		panic("maxabsdiff: shape mismatch")
	}
	var maxAbs float64
	for i := 0; i < a.R; i++ {
		ra, rb := a.Row(i), b.Row(i)
		for j := range ra {
			d := math.Abs(ra[j] - rb[j])
			if math.IsNaN(d) {
				return math.Inf(1)
			}
			if d > maxAbs {
				maxAbs = d
			}
		}
	}
	return maxAbs
}

// Equal reports whether a and b have the same shape and bit-identical values.
func Equal(a, b *Mat) bool {
	if a.R != b.R || a.C != b.C {
		return false
	}
	for i := 0; i < a.R; i++ {
		ra, rb := a.Row(i), b.Row(i)
		for j := range ra {
			if math.Float64bits(ra[j]) != math.Float64bits(rb[j]) {
				return false
			}
		}
	}
	return true
}

// NaNInfo summarises non-finite values found in a tensor.
type NaNInfo struct {
	NaNCount  int
	InfCount  int
	Positions []int
}

// IsValid reports whether no NaN or Inf values were found.
func (n NaNInfo) IsValid() bool {
	return n.NaNCount == 0 && n.InfCount == 0
}

// CheckFinite scans m for NaN and Inf values. Positions holds the flat
// (row*C+col) index of the first few offending elements.
func CheckFinite(m *Mat) NaNInfo {
	const maxPositions = 16
	var info NaNInfo
	for i := 0; i < m.R; i++ {
		for j, v := range m.Row(i) {
			switch {
			case math.IsNaN(v):
				info.NaNCount++
			case math.IsInf(v, 0):
				info.InfCount++
			default:
				continue
			}
			if len(info.Positions) < maxPositions {
				info.Positions = append(info.Positions, i*m.C+j)
			}
		}
	}
	return info
}
