package gru

import (
	"fmt"
	"strings"
)

// Kernel selects the forward implementation.
type Kernel string

const (
	KernelReference Kernel = "reference"
	KernelFused     Kernel = "fused"
)

// Kernels lists the accepted kernel names.
var Kernels = []Kernel{KernelReference, KernelFused}

// ParseKernel resolves a kernel name. The empty string selects the reference
// kernel.
func ParseKernel(name string) (Kernel, error) {
	switch Kernel(strings.ToLower(strings.TrimSpace(name))) {
	case "", KernelReference:
		return KernelReference, nil
	case KernelFused:
		return KernelFused, nil
	default:
		return "", fmt.Errorf("%w: unknown kernel %q", ErrInvalidInput, name)
	}
}

// Run dispatches to Forward or ForwardFused.
func (k Kernel) Run(in Inputs, cfg Config, opts FusedOptions) (*Outputs, error) {
	switch k {
	case KernelReference, "":
		return Forward(in, cfg)
	case KernelFused:
		return ForwardFused(in, cfg, opts)
	default:
		return nil, fmt.Errorf("%w: unknown kernel %q", ErrInvalidInput, string(k))
	}
}
