package gru

import (
	"errors"

	"github.com/samcharles93/lodgru/internal/lod"
)

var (
	// ErrInvalidInput reports empty or non-positive sequence lengths.
	ErrInvalidInput = lod.ErrInvalidInput
	// ErrShapeMismatch reports inconsistent Input, Weight, Bias or H0 shapes.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnsupportedActivation reports an activation outside the supported set.
	ErrUnsupportedActivation = errors.New("unsupported activation")
)

// ErrorKind classifies err into one of "invalid_input", "shape_mismatch",
// "unsupported_activation", or "" when err is none of those.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrUnsupportedActivation):
		return "unsupported_activation"
	default:
		return ""
	}
}
