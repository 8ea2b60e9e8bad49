package gru

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/samcharles93/lodgru/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

type problem struct {
	in  Inputs
	cfg Config
}

func newProblem(lengths []int, d int, seed int64, withBias, withH0, reverse bool) problem {
	total := 0
	for _, n := range lengths {
		total += n
	}
	in := Inputs{
		Input:   tensor.NewMat(total, 3*d),
		Lengths: lengths,
		Weight:  tensor.NewMat(d, 3*d),
	}
	tensor.FillRand(&in.Input, seed)
	tensor.FillRand(&in.Weight, seed+1)
	if withBias {
		bias := tensor.NewMat(1, 3*d)
		tensor.FillRand(&bias, seed+2)
		in.Bias = bias.Data
	}
	if withH0 {
		h0 := tensor.NewMat(len(lengths), d)
		tensor.FillRand(&h0, seed+3)
		in.H0 = &h0
	}
	cfg := DefaultConfig()
	cfg.Reverse = reverse
	return problem{in: in, cfg: cfg}
}

// oracleHidden runs each sequence on its own, one row at a time, with no
// batching or reordering. The matrix products go through gonum so the
// oracle shares no arithmetic with the tensor package.
func oracleHidden(in Inputs, cfg Config) tensor.Mat {
	d := in.Weight.R
	wFlat := in.Weight.Data
	wUR := mat.NewDense(d, 2*d, slices.Clone(wFlat[:2*d*d]))
	wC := mat.NewDense(d, d, slices.Clone(wFlat[2*d*d:3*d*d]))
	stateAct := cfg.Activation.Func()
	gateAct := cfg.GateActivation.Func()

	total := 0
	for _, n := range in.Lengths {
		total += n
	}
	hidden := tensor.NewMat(total, d)

	start := 0
	for s, n := range in.Lengths {
		h := make([]float64, d)
		if in.H0 != nil {
			copy(h, in.H0.Row(s))
		}
		for k := 0; k < n; k++ {
			row := start + k
			if cfg.Reverse {
				row = start + n - 1 - k
			}
			g := slices.Clone(in.Input.Row(row))
			if in.Bias != nil {
				for j := range g {
					g[j] += in.Bias[j]
				}
			}

			var ur mat.Dense
			ur.Mul(mat.NewDense(1, d, h), wUR)
			u := make([]float64, d)
			rh := make([]float64, d)
			for j := 0; j < d; j++ {
				u[j] = gateAct(ur.At(0, j) + g[j])
				rh[j] = gateAct(ur.At(0, d+j)+g[d+j]) * h[j]
			}

			var c mat.Dense
			c.Mul(mat.NewDense(1, d, rh), wC)
			next := make([]float64, d)
			for j := 0; j < d; j++ {
				cj := stateAct(c.At(0, j) + g[2*d+j])
				next[j] = u[j]*cj + (1-u[j])*h[j]
			}
			h = next
			copy(hidden.Row(row), h)
		}
		start += n
	}
	return hidden
}

var variants = []struct {
	name     string
	withH0   bool
	withBias bool
	reverse  bool
}{
	{"default", true, true, false},
	{"no initial", false, true, false},
	{"no bias", true, false, false},
	{"reverse", true, true, true},
	{"bare reverse", false, false, true},
}

func TestForwardMatchesUnbatchedOracle(t *testing.T) {
	t.Parallel()

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			t.Parallel()
			p := newProblem([]int{2, 4, 3}, 5, 7, v.withBias, v.withH0, v.reverse)
			out, err := Forward(p.in, p.cfg)
			if err != nil {
				t.Fatalf("Forward: %v", err)
			}
			want := oracleHidden(p.in, p.cfg)
			if d := tensor.MaxAbsDiff(&want, &out.Hidden); d > 1e-8 {
				t.Fatalf("hidden differs from oracle by %g", d)
			}
		})
	}
}

func TestForwardSingleStepByHand(t *testing.T) {
	t.Parallel()

	in := Inputs{
		Input:   tensor.NewMatFromData(1, 3, []float64{0, 0, 0}),
		Lengths: []int{1},
		Weight:  tensor.NewMatFromData(1, 3, []float64{1, 1, 1}),
		Bias:    []float64{0, 0, 0},
		H0:      &tensor.Mat{R: 1, C: 1, Stride: 1, Data: []float64{0}},
	}
	out, err := Forward(in, DefaultConfig())
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if out.Hidden.R != 1 || out.Hidden.C != 1 || out.Hidden.Data[0] != 0 {
		t.Fatalf("hidden: got %v, want [[0]]", out.Hidden.Data)
	}
	if want := []float64{0.5, 0.5, 0}; !slices.Equal(out.BatchGate.Data, want) {
		t.Fatalf("batch gate: got %v, want %v", out.BatchGate.Data, want)
	}
	if out.BatchResetHiddenPrev.Data[0] != 0 {
		t.Fatalf("reset hidden prev: got %v", out.BatchResetHiddenPrev.Data)
	}
}

func TestForwardSingleStepNonZero(t *testing.T) {
	t.Parallel()

	// D=1, h0=1, x=[0,0,0], W=[1,1,1]:
	// u = r = sigmoid(1), c = tanh(r), h = u*c + (1-u).
	in := Inputs{
		Input:   tensor.NewMat(1, 3),
		Lengths: []int{1},
		Weight:  tensor.NewMatFromData(1, 3, []float64{1, 1, 1}),
		H0:      &tensor.Mat{R: 1, C: 1, Stride: 1, Data: []float64{1}},
	}
	out, err := Forward(in, DefaultConfig())
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	u := 1 / (1 + math.Exp(-1))
	c := math.Tanh(u)
	want := u*c + (1 - u)
	if got := out.Hidden.Data[0]; math.Abs(got-want) > 1e-15 {
		t.Fatalf("hidden: got %v, want %v", got, want)
	}
}

func TestForwardOptionalInputsEqualZeros(t *testing.T) {
	t.Parallel()

	p := newProblem([]int{3, 1, 2}, 4, 11, false, false, false)
	bare, err := Forward(p.in, p.cfg)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	withZeros := p.in
	withZeros.Bias = make([]float64, 12)
	h0 := tensor.NewMat(3, 4)
	withZeros.H0 = &h0
	zeros, err := Forward(withZeros, p.cfg)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	if !tensor.Equal(&bare.Hidden, &zeros.Hidden) ||
		!tensor.Equal(&bare.BatchGate, &zeros.BatchGate) ||
		!tensor.Equal(&bare.BatchResetHiddenPrev, &zeros.BatchResetHiddenPrev) {
		t.Fatal("omitted bias/h0 differs from explicit zeros")
	}
}

func TestForwardDeterministic(t *testing.T) {
	t.Parallel()

	p := newProblem([]int{5, 2, 5, 3}, 6, 3, true, true, true)
	a, err := Forward(p.in, p.cfg)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	b, err := Forward(p.in, p.cfg)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if !tensor.Equal(&a.Hidden, &b.Hidden) ||
		!tensor.Equal(&a.BatchGate, &b.BatchGate) ||
		!tensor.Equal(&a.BatchResetHiddenPrev, &b.BatchResetHiddenPrev) {
		t.Fatal("repeated calls are not bit-identical")
	}
}

func TestForwardReverseMirrorsForward(t *testing.T) {
	t.Parallel()

	const n, d = 6, 3
	p := newProblem([]int{n}, d, 21, true, true, true)
	rev, err := Forward(p.in, p.cfg)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	// Running forward over the rows in reverse order visits the same inputs
	// in the same sequence; its hidden rows are rev's rows reversed.
	flipped := p.in
	flipped.Input = tensor.NewMat(n, 3*d)
	for i := 0; i < n; i++ {
		copy(flipped.Input.Row(i), p.in.Input.Row(n-1-i))
	}
	cfg := p.cfg
	cfg.Reverse = false
	fwd, err := Forward(flipped, cfg)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	for i := 0; i < n; i++ {
		if !slices.Equal(rev.Hidden.Row(i), fwd.Hidden.Row(n-1-i)) {
			t.Fatalf("row %d: reverse %v, mirrored forward %v", i, rev.Hidden.Row(i), fwd.Hidden.Row(n-1-i))
		}
	}
}

func TestForwardBatchedOutputsFollowBatchLayout(t *testing.T) {
	t.Parallel()

	p := newProblem([]int{2, 4, 3}, 5, 13, true, true, false)
	out, err := Forward(p.in, p.cfg)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	b := out.Batch
	for step, rows := range b.Steps {
		for i, r := range rows {
			if !slices.Equal(out.BatchHidden.Row(b.Offsets[step]+i), out.Hidden.Row(r)) {
				t.Fatalf("step %d lane %d: batch hidden does not match hidden row %d", step, i, r)
			}
		}
	}
}

func TestForwardActivations(t *testing.T) {
	t.Parallel()

	for _, act := range []Activation{Identity, Sigmoid, Tanh, Relu} {
		for _, gateAct := range []Activation{Sigmoid, Relu} {
			t.Run(act.String()+"/"+gateAct.String(), func(t *testing.T) {
				t.Parallel()
				p := newProblem([]int{3, 3, 1}, 2, 5, true, true, false)
				p.cfg.Activation = act
				p.cfg.GateActivation = gateAct
				out, err := Forward(p.in, p.cfg)
				if err != nil {
					t.Fatalf("Forward: %v", err)
				}
				want := oracleHidden(p.in, p.cfg)
				if d := tensor.MaxAbsDiff(&want, &out.Hidden); d > 1e-8 {
					t.Fatalf("hidden differs from oracle by %g", d)
				}
			})
		}
	}
}

func TestForwardValidationErrors(t *testing.T) {
	t.Parallel()

	base := newProblem([]int{2, 4, 3}, 5, 1, true, true, false)
	badH0 := tensor.NewMat(2, 5)
	badH0Width := tensor.NewMat(3, 4)
	bareH0 := tensor.Mat{R: 3, C: 5, Stride: 5}

	tests := []struct {
		name   string
		mutate func(*Inputs, *Config)
		want   error
	}{
		{"empty lengths", func(in *Inputs, _ *Config) { in.Lengths = nil }, ErrInvalidInput},
		{"zero length", func(in *Inputs, _ *Config) { in.Lengths = []int{2, 0, 7} }, ErrInvalidInput},
		{"lengths sum mismatch", func(in *Inputs, _ *Config) { in.Lengths = []int{2, 4, 2} }, ErrShapeMismatch},
		{"lengths overflow", func(in *Inputs, _ *Config) { in.Lengths = []int{math.MaxInt, 2} }, ErrInvalidInput},
		{"lengths far past input", func(in *Inputs, _ *Config) { in.Lengths = []int{1 << 34} }, ErrShapeMismatch},
		{"input without data", func(in *Inputs, _ *Config) { in.Input = tensor.Mat{R: 9, C: 15, Stride: 15} }, ErrShapeMismatch},
		{"input stride narrower than width", func(in *Inputs, _ *Config) {
			in.Input = tensor.Mat{R: 9, C: 15, Stride: 10, Data: make([]float64, 135)}
		}, ErrShapeMismatch},
		{"h0 without data", func(in *Inputs, _ *Config) { in.H0 = &bareH0 }, ErrShapeMismatch},
		{"weight not 3D wide", func(in *Inputs, _ *Config) { in.Weight = tensor.NewMat(5, 10) }, ErrShapeMismatch},
		{"input width", func(in *Inputs, _ *Config) { in.Input = tensor.NewMat(9, 12) }, ErrShapeMismatch},
		{"bias width", func(in *Inputs, _ *Config) { in.Bias = make([]float64, 5) }, ErrShapeMismatch},
		{"h0 rows", func(in *Inputs, _ *Config) { in.H0 = &badH0 }, ErrShapeMismatch},
		{"h0 width", func(in *Inputs, _ *Config) { in.H0 = &badH0Width }, ErrShapeMismatch},
		{"empty weight", func(in *Inputs, _ *Config) { in.Weight = tensor.Mat{} }, ErrShapeMismatch},
		{"bad activation", func(_ *Inputs, cfg *Config) { cfg.Activation = Activation(42) }, ErrUnsupportedActivation},
		{"bad gate activation", func(_ *Inputs, cfg *Config) { cfg.GateActivation = numActivations }, ErrUnsupportedActivation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := base.in
			cfg := base.cfg
			tt.mutate(&in, &cfg)
			out, err := Forward(in, cfg)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Forward: got %v, want %v", err, tt.want)
			}
			if out != nil {
				t.Fatal("expected no outputs on error")
			}
			if _, err := ForwardFused(in, cfg, FusedOptions{}); !errors.Is(err, tt.want) {
				t.Fatalf("ForwardFused: got %v, want %v", err, tt.want)
			}
		})
	}
}

func BenchmarkForward(b *testing.B) {
	p := newProblem([]int{20, 35, 12, 40, 8, 33, 27, 16}, 64, 1, true, true, false)
	for b.Loop() {
		if _, err := Forward(p.in, p.cfg); err != nil {
			b.Fatal(err)
		}
	}
}
