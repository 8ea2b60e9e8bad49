package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/gruio"
	"github.com/samcharles93/lodgru/internal/metrics"
	"github.com/samcharles93/lodgru/internal/tensor"
)

// ServiceConfig holds server-wide defaults applied when a request leaves a
// field unset.
type ServiceConfig struct {
	Kernel    gru.Kernel
	Workers   int
	Tolerance float64
}

// DefaultServiceConfig returns the reference kernel with a 1e-8 tolerance.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Kernel:    gru.KernelReference,
		Tolerance: 1e-8,
	}
}

// GRUService runs forward and validation requests.
type GRUService struct {
	cfg   ServiceConfig
	clock func() time.Time
}

func NewGRUService(cfg ServiceConfig) *GRUService {
	if cfg.Kernel == "" {
		cfg.Kernel = gru.KernelReference
	}
	return &GRUService{
		cfg:   cfg,
		clock: time.Now,
	}
}

func (s *GRUService) Forward(ctx context.Context, req *ForwardRequest) (*gruio.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kernel := s.cfg.Kernel
	if req.Kernel != "" {
		k, err := gru.ParseKernel(req.Kernel)
		if err != nil {
			return nil, newInvalidRequest(err.Error())
		}
		kernel = k
	}
	in, cfg, err := req.Build()
	if err != nil {
		return nil, err
	}

	out, elapsed, err := s.run(kernel, in, cfg, s.workers(req.Workers))
	if err != nil {
		return nil, err
	}
	res := gruio.NewResult(string(kernel), out, elapsed, req.IncludeBatch)
	res.ID = newResultID()
	return &res, nil
}

func (s *GRUService) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tol := s.cfg.Tolerance
	if req.Tolerance != nil {
		if *req.Tolerance < 0 {
			return nil, newInvalidRequest("tolerance must be non-negative")
		}
		tol = *req.Tolerance
	}
	in, cfg, err := req.Build()
	if err != nil {
		return nil, err
	}
	workers := s.workers(req.Workers)

	ref, refElapsed, err := s.run(gru.KernelReference, in, cfg, workers)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fused, fusedElapsed, err := s.run(gru.KernelFused, in, cfg, workers)
	if err != nil {
		return nil, err
	}
	rep, err := gru.Compare(ref, fused, tol)
	if err != nil {
		return nil, err
	}
	if !rep.OK {
		metrics.RecordMismatch()
	}
	return &ValidateResponse{
		ID:          newResultID(),
		Report:      rep,
		ReferenceMS: millis(refElapsed),
		FusedMS:     millis(fusedElapsed),
	}, nil
}

func (s *GRUService) run(k gru.Kernel, in gru.Inputs, cfg gru.Config, workers int) (*gru.Outputs, time.Duration, error) {
	start := s.clock()
	out, err := k.Run(in, cfg, gru.FusedOptions{Workers: workers})
	if err != nil {
		return nil, 0, err
	}
	elapsed := s.clock().Sub(start)
	metrics.RecordForward(string(k), elapsed, out.Batch.MaxLen(), out.Batch.Total())
	info := tensor.CheckFinite(&out.Hidden)
	metrics.RecordNumericalInstability("hidden", info.NaNCount, info.InfCount)
	return out, elapsed, nil
}

func (s *GRUService) workers(n int) int {
	if n > 0 {
		return n
	}
	return s.cfg.Workers
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func newResultID() string {
	return "gru_" + uuid.NewString()
}
