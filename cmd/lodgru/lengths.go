package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samcharles93/lodgru/internal/gru"
)

// parseLengths parses "2,4,3" into sequence lengths. Positivity is checked
// later by the engine.
func parseLengths(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: no sequence lengths given", gru.ErrInvalidInput)
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: sequence length %q: %v", gru.ErrInvalidInput, p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
