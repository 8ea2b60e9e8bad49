package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/gruio"
	"github.com/samcharles93/lodgru/internal/logger"
	"github.com/samcharles93/lodgru/internal/metrics"
)

func validateCmd() *cli.Command {
	var (
		problem   problemOptions
		tolerance float64
		workers   int64
		jsonOut   bool
	)

	flags := problem.flags()
	flags = append(flags,
		&cli.Float64Flag{
			Name:        "tolerance",
			Usage:       "maximum absolute difference allowed between kernels",
			Value:       1e-8,
			Destination: &tolerance,
		},
		workersFlag(&workers),
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the report as JSON",
			Destination: &jsonOut,
		},
	)

	return &cli.Command{
		Name:  "validate",
		Usage: "Cross-check the fused kernel against the reference kernel",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyEngineConfig(cmd, fileConfig, nil, &workers, &tolerance)

			in, cfg, err := problem.load(cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load problem: %v", err), 1)
			}

			ref, refElapsed, err := timeKernel(gru.KernelReference, in, cfg, int(workers))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: reference: %v", err), 1)
			}
			fused, fusedElapsed, err := timeKernel(gru.KernelFused, in, cfg, int(workers))
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: fused: %v", err), 1)
			}
			log.Debug("kernels complete", "reference", refElapsed, "fused", fusedElapsed)

			rep, err := gru.Compare(ref, fused, tolerance)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: compare: %v", err), 1)
			}
			for _, d := range rep.Diffs {
				metrics.RecordNumericalInstability(d.Name, d.NaNs, d.Infs)
			}

			if jsonOut {
				if err := gruio.EncodeJSON(os.Stdout, rep); err != nil {
					return err
				}
			} else {
				fmt.Print(rep.String())
			}

			if !rep.OK {
				metrics.RecordMismatch()
				log.Error("kernel mismatch", "failed", rep.Failed(), "tolerance", tolerance)
				return cli.Exit("validation failed", 1)
			}
			log.Info("kernels agree", "tolerance", tolerance)
			return nil
		},
	}
}

func timeKernel(k gru.Kernel, in gru.Inputs, cfg gru.Config, workers int) (*gru.Outputs, time.Duration, error) {
	start := time.Now()
	out, err := k.Run(in, cfg, gru.FusedOptions{Workers: workers})
	if err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)
	metrics.RecordForward(string(k), elapsed, out.Batch.MaxLen(), out.Batch.Total())
	return out, elapsed, nil
}
