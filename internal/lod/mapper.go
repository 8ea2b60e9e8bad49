package lod

import "github.com/samcharles93/lodgru/internal/tensor"

// Gather copies src row rows[i] into dst row i for every i.
func Gather(dst, src *tensor.Mat, rows []int) {
	if dst.R != len(rows) || dst.C != src.C {
		panic("gather: shape mismatch")
	}
	if tensor.Overlaps(dst, src) {
		panic("gather: source and destination overlap")
	}
	for i, r := range rows {
		copy(dst.Row(i), src.Row(r))
	}
}

// Scatter copies src row i into dst row rows[i] for every i.
func Scatter(dst, src *tensor.Mat, rows []int) {
	if src.R != len(rows) || dst.C != src.C {
		panic("scatter: shape mismatch")
	}
	if tensor.Overlaps(dst, src) {
		panic("scatter: source and destination overlap")
	}
	for i, r := range rows {
		copy(dst.Row(r), src.Row(i))
	}
}

// GatherSorted copies per-sequence rows of src (one row per sequence) into dst
// in sorted sequence order.
func (b *Batch) GatherSorted(dst, src *tensor.Mat) {
	if src.R != b.Len() {
		panic("gather sorted: source must have one row per sequence")
	}
	Gather(dst, src, b.Order)
}

// StepRows returns the batched-layout view of timestep t inside m.
func (b *Batch) StepRows(m *tensor.Mat, t int) tensor.Mat {
	return m.Rows(b.Offsets[t], b.Offsets[t+1])
}

// ToBatch reorders a flat tensor into batched layout: the rows of timestep t
// land at batched rows [Offsets[t], Offsets[t+1]).
func (b *Batch) ToBatch(dst, src *tensor.Mat) {
	if src.R != b.Total() || dst.R != b.Total() {
		panic("to batch: row count mismatch")
	}
	for t, rows := range b.Steps {
		block := b.StepRows(dst, t)
		Gather(&block, src, rows)
	}
}

// ToSequence is the inverse of ToBatch.
func (b *Batch) ToSequence(dst, src *tensor.Mat) {
	if src.R != b.Total() || dst.R != b.Total() {
		panic("to sequence: row count mismatch")
	}
	for t, rows := range b.Steps {
		block := b.StepRows(src, t)
		Scatter(dst, &block, rows)
	}
}
