package gru

import (
	"fmt"
	"strings"

	"github.com/samcharles93/lodgru/internal/tensor"
)

// Activation selects one of the element-wise activation functions the
// recurrence supports.
type Activation uint8

const (
	Identity Activation = iota
	Sigmoid
	Tanh
	Relu

	numActivations
)

var activationNames = [numActivations]string{
	Identity: "identity",
	Sigmoid:  "sigmoid",
	Tanh:     "tanh",
	Relu:     "relu",
}

var activationFuncs = [numActivations]func(float64) float64{
	Identity: tensor.Identity,
	Sigmoid:  tensor.Sigmoid,
	Tanh:     tensor.Tanh,
	Relu:     tensor.Relu,
}

// ParseActivation maps a name such as "tanh" to its Activation. Matching is
// case-insensitive; "linear" is accepted as an alias for identity.
func ParseActivation(name string) (Activation, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "linear" {
		return Identity, nil
	}
	for i, s := range activationNames {
		if s == n {
			return Activation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedActivation, name)
}

// Valid reports whether a is one of the defined activations.
func (a Activation) Valid() bool {
	return a < numActivations
}

func (a Activation) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Activation(%d)", uint8(a))
	}
	return activationNames[a]
}

// Func returns the scalar function for a. It panics on an invalid value;
// Validate rejects those before any numeric work starts.
func (a Activation) Func() func(float64) float64 {
	if !a.Valid() {
		panic("gru: invalid activation " + a.String())
	}
	return activationFuncs[a]
}

// MarshalText implements encoding.TextMarshaler.
func (a Activation) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedActivation, uint8(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Activation) UnmarshalText(text []byte) error {
	v, err := ParseActivation(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
