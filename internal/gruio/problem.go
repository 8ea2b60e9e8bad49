// Package gruio reads and writes recurrence problems and results.
package gruio

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/tensor"
)

// Problem is the on-disk and on-wire form of one forward call. Bias and H0
// are optional; activation names default to tanh and sigmoid.
type Problem struct {
	Lengths        []int       `json:"lengths"`
	Input          [][]float64 `json:"input"`
	Weight         [][]float64 `json:"weight"`
	Bias           []float64   `json:"bias,omitempty"`
	H0             [][]float64 `json:"h0,omitempty"`
	Activation     string      `json:"activation,omitempty"`
	GateActivation string      `json:"gate_activation,omitempty"`
	IsReverse      bool        `json:"is_reverse,omitempty"`
}

// Build converts p into engine inputs and configuration. Ragged matrices are
// reported as gru.ErrShapeMismatch and unknown activation names as
// gru.ErrUnsupportedActivation.
func (p *Problem) Build() (gru.Inputs, gru.Config, error) {
	cfg := gru.DefaultConfig()
	cfg.Reverse = p.IsReverse
	if p.Activation != "" {
		a, err := gru.ParseActivation(p.Activation)
		if err != nil {
			return gru.Inputs{}, gru.Config{}, err
		}
		cfg.Activation = a
	}
	if p.GateActivation != "" {
		a, err := gru.ParseActivation(p.GateActivation)
		if err != nil {
			return gru.Inputs{}, gru.Config{}, err
		}
		cfg.GateActivation = a
	}

	input, err := tensor.NewMatFromRows(p.Input)
	if err != nil {
		return gru.Inputs{}, gru.Config{}, fmt.Errorf("%w: input: %v", gru.ErrShapeMismatch, err)
	}
	weight, err := tensor.NewMatFromRows(p.Weight)
	if err != nil {
		return gru.Inputs{}, gru.Config{}, fmt.Errorf("%w: weight: %v", gru.ErrShapeMismatch, err)
	}
	in := gru.Inputs{
		Input:   input,
		Lengths: p.Lengths,
		Weight:  weight,
	}
	if p.Bias != nil {
		in.Bias = append([]float64(nil), p.Bias...)
	}
	if p.H0 != nil {
		h0, err := tensor.NewMatFromRows(p.H0)
		if err != nil {
			return gru.Inputs{}, gru.Config{}, fmt.Errorf("%w: h0: %v", gru.ErrShapeMismatch, err)
		}
		in.H0 = &h0
	}
	return in, cfg, nil
}

// FromInputs is the inverse of Build.
func FromInputs(in gru.Inputs, cfg gru.Config) Problem {
	p := Problem{
		Lengths:        append([]int(nil), in.Lengths...),
		Input:          in.Input.ToRows(),
		Weight:         in.Weight.ToRows(),
		Activation:     cfg.Activation.String(),
		GateActivation: cfg.GateActivation.String(),
		IsReverse:      cfg.Reverse,
	}
	if in.Bias != nil {
		p.Bias = append([]float64(nil), in.Bias...)
	}
	if in.H0 != nil {
		p.H0 = in.H0.ToRows()
	}
	return p
}

// DecodeProblem reads one JSON problem from r.
func DecodeProblem(r io.Reader) (Problem, error) {
	var p Problem
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Problem{}, fmt.Errorf("decode problem: %w", err)
	}
	return p, nil
}

// LoadProblem reads a JSON problem file.
func LoadProblem(path string) (Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return Problem{}, err
	}
	defer f.Close()
	return DecodeProblem(f)
}

// EncodeJSON writes v to w as indented JSON.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SaveJSON writes v to path as indented JSON.
func SaveJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeJSON(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
