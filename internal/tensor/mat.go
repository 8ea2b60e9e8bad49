package tensor

import (
	"math/rand"
	"unsafe"
)

// Mat represents a dense row‑major matrix of float64 values.
//
// R and C represent the number of rows and columns respectively.  Stride is the
// number of elements between the starts of two consecutive rows (for row‑major
// matrices this is equal to C).  Data holds the flattened matrix values.
//
// Mat does not perform any memory safety beyond the checks performed by Go's
// slice types; out‑of‑range indices will panic.
type Mat struct {
	R, C   int
	Stride int
	Data   []float64
}

// NewMat allocates a new matrix with the given number of rows and columns.
// The underlying slice is zero initialised.  The stride is set to the
// number of columns.
func NewMat(r, c int) Mat {
	if r < 0 || c < 0 {
		panic("negative dimension for matrix")
	}
	return Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   make([]float64, r*c),
	}
}

// NewMatFromData creates a matrix from existing data.
// It checks that the data length matches r*c.
func NewMatFromData(r, c int, data []float64) Mat {
	if r*c != len(data) {
		panic("data length mismatch")
	}
	return Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   data,
	}
}

// NewMatFromRows copies a slice of equally sized rows into a new matrix.
func NewMatFromRows(rows [][]float64) (Mat, error) {
	if len(rows) == 0 {
		return Mat{}, nil
	}
	c := len(rows[0])
	m := NewMat(len(rows), c)
	for i, row := range rows {
		if len(row) != c {
			return Mat{}, errRaggedRows
		}
		copy(m.Data[i*c:(i+1)*c], row)
	}
	return m, nil
}

// Row returns a view of the i‑th row of the matrix as a slice.  The slice
// has length equal to the number of columns.  Modifications to the returned
// slice update the underlying matrix values.
func (m *Mat) Row(i int) []float64 {
	if i < 0 || i >= m.R {
		panic("row index out of range")
	}
	start := i * m.Stride
	return m.Data[start : start+m.C]
}

// RowTo copies the i-th row into dst. dst must have length >= C.
func (m *Mat) RowTo(dst []float64, i int) {
	if len(dst) < m.C {
		panic("row buffer too small")
	}
	copy(dst[:m.C], m.Row(i))
}

// Rows returns a view of rows [rs, re) sharing storage with m.
func (m *Mat) Rows(rs, re int) Mat {
	if rs < 0 || re > m.R || rs > re {
		panic("row range out of range")
	}
	if rs == re {
		return Mat{R: 0, C: m.C, Stride: m.Stride}
	}
	start := rs * m.Stride
	end := (re-1)*m.Stride + m.C
	return Mat{
		R:      re - rs,
		C:      m.C,
		Stride: m.Stride,
		Data:   m.Data[start:end],
	}
}

// Cols returns a view of columns [cs, ce) sharing storage with m.
func (m *Mat) Cols(cs, ce int) Mat {
	if cs < 0 || ce > m.C || cs > ce {
		panic("column range out of range")
	}
	if m.R == 0 || cs == ce {
		return Mat{R: m.R, C: ce - cs, Stride: m.Stride}
	}
	end := (m.R-1)*m.Stride + ce
	return Mat{
		R:      m.R,
		C:      ce - cs,
		Stride: m.Stride,
		Data:   m.Data[cs:end],
	}
}

// Clone returns a compact deep copy of m.
func (m *Mat) Clone() Mat {
	out := NewMat(m.R, m.C)
	for i := 0; i < m.R; i++ {
		copy(out.Data[i*out.Stride:i*out.Stride+out.C], m.Row(i))
	}
	return out
}

// ToRows copies the matrix into a freshly allocated slice of rows.
func (m *Mat) ToRows() [][]float64 {
	out := make([][]float64, m.R)
	for i := range out {
		out[i] = append([]float64(nil), m.Row(i)...)
	}
	return out
}

// Overlaps reports whether a and b share any backing storage.
func Overlaps(a, b *Mat) bool {
	if len(a.Data) == 0 || len(b.Data) == 0 {
		return false
	}
	a0, a1 := &a.Data[0], &a.Data[len(a.Data)-1]
	b0, b1 := &b.Data[0], &b.Data[len(b.Data)-1]
	return sliceAddr(a0) <= sliceAddr(b1) && sliceAddr(b0) <= sliceAddr(a1)
}

// FillRand fills the matrix with reproducible pseudo‑random values drawn
// uniformly from [0, 1).  The seed controls the random sequence; multiple
// calls with the same seed produce identical matrices.
func FillRand(m *Mat, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < m.R; i++ {
		row := m.Row(i)
		for j := range row {
			row[j] = rng.Float64()
		}
	}
}

func sliceAddr(p *float64) uintptr {
	return uintptr(unsafe.Pointer(p))
}

var errRaggedRows = fmtError("rows have different lengths")

type fmtError string

func (e fmtError) Error() string { return string(e) }
