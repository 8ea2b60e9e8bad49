package api

import (
	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/gruio"
)

// ForwardRequest is a problem plus kernel selection.
type ForwardRequest struct {
	gruio.Problem
	Kernel       string `json:"kernel,omitempty"`
	IncludeBatch bool   `json:"include_batch,omitempty"`
	Workers      int    `json:"workers,omitempty"`
}

// ValidateRequest runs both kernels on a problem and compares them.
type ValidateRequest struct {
	gruio.Problem
	Tolerance *float64 `json:"tolerance,omitempty"`
	Workers   int      `json:"workers,omitempty"`
}

// ValidateResponse is the cross-check report for one problem.
type ValidateResponse struct {
	ID string `json:"id"`
	gru.Report
	ReferenceMS float64 `json:"reference_ms"`
	FusedMS     float64 `json:"fused_ms"`
}

// DeleteResultResp acknowledges a deleted result.
type DeleteResultResp struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
