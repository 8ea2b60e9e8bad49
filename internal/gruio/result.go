package gruio

import (
	"time"

	"github.com/samcharles93/lodgru/internal/gru"
)

// Result is the serialised form of gru.Outputs.
type Result struct {
	ID                   string      `json:"id,omitempty"`
	Kernel               string      `json:"kernel"`
	Hidden               [][]float64 `json:"hidden"`
	BatchGate            [][]float64 `json:"batch_gate,omitempty"`
	BatchResetHiddenPrev [][]float64 `json:"batch_reset_hidden_prev,omitempty"`
	BatchHidden          [][]float64 `json:"batch_hidden,omitempty"`
	Order                []int       `json:"order"`
	Steps                [][]int     `json:"steps"`
	ElapsedMS            float64     `json:"elapsed_ms"`
}

// NewResult converts outputs into a Result. The batched tensors are included
// only when withBatch is set.
func NewResult(kernel string, out *gru.Outputs, elapsed time.Duration, withBatch bool) Result {
	r := Result{
		Kernel:    kernel,
		Hidden:    out.Hidden.ToRows(),
		Order:     out.Batch.Order,
		Steps:     out.Batch.Steps,
		ElapsedMS: float64(elapsed.Microseconds()) / 1000,
	}
	if withBatch {
		r.BatchGate = out.BatchGate.ToRows()
		r.BatchResetHiddenPrev = out.BatchResetHiddenPrev.ToRows()
		r.BatchHidden = out.BatchHidden.ToRows()
	}
	return r
}
