// Package lod converts variable-length sequences packed into one flat tensor
// into dense per-timestep batches and back.
//
// A LoD ("level of detail") describes N sequences stored back to back: sequence
// s occupies rows [Starts[s], Starts[s+1]) of the flat tensor. Batching sorts
// the sequences by descending length so that the sequences still alive at any
// timestep form a prefix of the sorted order, which keeps every timestep's
// rows contiguous in the batched layout.
package lod

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrInvalidInput reports empty, non-positive or overflowing sequence lengths.
var ErrInvalidInput = errors.New("invalid input")

// Batch is the per-timestep view of a set of sequences.
type Batch struct {
	// Lengths holds the per-sequence lengths in original order.
	Lengths []int
	// Starts holds N+1 row offsets into the flat layout; Starts[N] is the
	// total number of rows.
	Starts []int
	// Order is the sorted sequence order: sequence indices by descending
	// length, ties kept in original order.
	Order []int
	// Steps holds, for each timestep t, the flat row index of element t of
	// every sequence in Order that is longer than t.
	Steps [][]int
	// Offsets holds maxLen+1 row offsets into the batched layout; timestep t
	// occupies batched rows [Offsets[t], Offsets[t+1]).
	Offsets []int
	Reverse bool
}

// TotalRows validates lengths and returns their sum, the number of rows the
// flat layout must hold. It fails on an empty list, a non-positive length or
// a sum that does not fit in an int.
func TotalRows(lengths []int) (int, error) {
	if len(lengths) == 0 {
		return 0, fmt.Errorf("%w: no sequences", ErrInvalidInput)
	}
	total := 0
	for i, n := range lengths {
		if n <= 0 {
			return 0, fmt.Errorf("%w: sequence %d has length %d", ErrInvalidInput, i, n)
		}
		if total > math.MaxInt-n {
			return 0, fmt.Errorf("%w: sequence lengths overflow at sequence %d", ErrInvalidInput, i)
		}
		total += n
	}
	return total, nil
}

// NewBatch builds the batch index for the given sequence lengths. When reverse
// is set every sequence is walked from its last row towards its first.
//
// The index takes O(total rows + longest length) memory, so callers holding
// untrusted lengths should compare TotalRows against the rows they actually
// have before calling it.
func NewBatch(lengths []int, reverse bool) (Batch, error) {
	total, err := TotalRows(lengths)
	if err != nil {
		return Batch{}, err
	}
	starts := make([]int, len(lengths)+1)
	for i, n := range lengths {
		starts[i+1] = starts[i] + n
	}

	order := make([]int, len(lengths))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(lengths[b], lengths[a])
	})

	maxLen := lengths[order[0]]
	steps := make([][]int, maxLen)
	offsets := make([]int, maxLen+1)
	// Every step is a window of one shared buffer holding each row once.
	flat := make([]int, total)
	active := len(order)
	for t := range maxLen {
		for active > 0 && lengths[order[active-1]] <= t {
			active--
		}
		lo, hi := offsets[t], offsets[t]+active
		rows := flat[lo:hi:hi]
		for i, s := range order[:active] {
			if reverse {
				rows[i] = starts[s+1] - 1 - t
			} else {
				rows[i] = starts[s] + t
			}
		}
		steps[t] = rows
		offsets[t+1] = hi
	}

	return Batch{
		Lengths: slices.Clone(lengths),
		Starts:  starts,
		Order:   order,
		Steps:   steps,
		Offsets: offsets,
		Reverse: reverse,
	}, nil
}

// Len returns the number of sequences.
func (b *Batch) Len() int {
	return len(b.Lengths)
}

// Total returns the number of rows in the flat layout.
func (b *Batch) Total() int {
	return b.Starts[len(b.Starts)-1]
}

// MaxLen returns the length of the longest sequence, which is the number of
// timesteps.
func (b *Batch) MaxLen() int {
	return len(b.Steps)
}

// BatchSize returns the number of sequences active at timestep t, or zero
// once t is past the longest sequence.
func (b *Batch) BatchSize(t int) int {
	if t < 0 || t >= len(b.Steps) {
		return 0
	}
	return len(b.Steps[t])
}

// SeqOf returns the sequence index and the position within that sequence of
// a row in the flat layout.
func (b *Batch) SeqOf(row int) (seq, pos int) {
	if row < 0 || row >= b.Total() {
		panic("row index out of range")
	}
	seq, found := slices.BinarySearch(b.Starts, row)
	if !found {
		seq--
	}
	return seq, row - b.Starts[seq]
}
