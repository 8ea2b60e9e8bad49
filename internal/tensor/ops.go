package tensor

import (
	"math"
)

// Add adds src to dst element-wise.
func Add(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// Mul multiplies dst by src element-wise.
func Mul(dst, src []float64) {
	for i := range dst {
		dst[i] *= src[i]
	}
}

// Dot computes the dot product of a and b.
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// AddRowVec adds v to every row of m.
func AddRowVec(m *Mat, v []float64) {
	if len(v) != m.C {
		panic("row vector length mismatch")
	}
	for i := 0; i < m.R; i++ {
		Add(m.Row(i), v)
	}
}

// MatMul computes dst = a * b with a straightforward triple loop. Each output
// element is accumulated over k in ascending order starting from zero.
func MatMul(dst, a, b *Mat) {
	if a.C != b.R || dst.R != a.R || dst.C != b.C {
		panic("matmul: dimension mismatch")
	}
	for i := 0; i < a.R; i++ {
		aRow := a.Row(i)
		out := dst.Row(i)
		for j := range out {
			var sum float64
			for k, av := range aRow {
				sum += av * b.Data[k*b.Stride+j]
			}
			out[j] = sum
		}
	}
}

// Apply replaces every element x of row with f(x).
func Apply(row []float64, f func(float64) float64) {
	for i, v := range row {
		row[i] = f(v)
	}
}

// Sigmoid computes the logistic sigmoid activation.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Tanh computes the hyperbolic tangent activation.
func Tanh(x float64) float64 {
	return math.Tanh(x)
}

// Relu computes max(x, 0).
func Relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Identity returns x unchanged.
func Identity(x float64) float64 {
	return x
}
