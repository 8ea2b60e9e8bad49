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
	"github.com/samcharles93/lodgru/internal/tensor"
)

func runCmd() *cli.Command {
	var (
		problem      problemOptions
		kernelName   string
		workers      int64
		outPath      string
		arrowPath    string
		includeBatch bool
	)

	flags := problem.flags()
	flags = append(flags,
		&cli.StringFlag{
			Name:        "kernel",
			Aliases:     []string{"k"},
			Usage:       "forward kernel (reference, fused)",
			Value:       string(gru.KernelReference),
			Destination: &kernelName,
		},
		workersFlag(&workers),
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "write result JSON to this path instead of stdout",
			Destination: &outPath,
		},
		&cli.StringFlag{
			Name:        "arrow",
			Usage:       "also write Hidden as an Arrow IPC stream to this path",
			Destination: &arrowPath,
		},
		&cli.BoolFlag{
			Name:        "include-batch",
			Usage:       "include BatchGate, BatchResetHiddenPrev and BatchHidden in the result",
			Destination: &includeBatch,
		},
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Run one GRU forward pass",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyEngineConfig(cmd, fileConfig, &kernelName, &workers, nil)

			kernel, err := gru.ParseKernel(kernelName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			in, cfg, err := problem.load(cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load problem: %v", err), 1)
			}
			log.Debug("problem loaded",
				"sequences", len(in.Lengths),
				"rows", in.Input.R,
				"hidden", in.FrameSize(),
				"activation", cfg.Activation,
				"gate_activation", cfg.GateActivation,
				"reverse", cfg.Reverse,
			)

			start := time.Now()
			out, err := kernel.Run(in, cfg, gru.FusedOptions{Workers: int(workers)})
			if err != nil {
				metrics.RecordValidationError(gru.ErrorKind(err))
				return cli.Exit(fmt.Sprintf("error: forward: %v", err), 1)
			}
			elapsed := time.Since(start)
			metrics.RecordForward(string(kernel), elapsed, out.Batch.MaxLen(), out.Batch.Total())
			log.Info("forward complete", "kernel", kernel, "timesteps", out.Batch.MaxLen(), "elapsed", elapsed)

			if info := tensor.CheckFinite(&out.Hidden); !info.IsValid() {
				log.Warn("non-finite values in hidden", "nan", info.NaNCount, "inf", info.InfCount, "positions", info.Positions)
			}

			res := gruio.NewResult(string(kernel), out, elapsed, includeBatch)
			if outPath != "" {
				if err := gruio.SaveJSON(outPath, res); err != nil {
					return cli.Exit(fmt.Sprintf("error: write result: %v", err), 1)
				}
				log.Info("result written", "path", outPath)
			} else if err := gruio.EncodeJSON(os.Stdout, res); err != nil {
				return err
			}

			if arrowPath != "" {
				if err := writeArrowFile(arrowPath, out); err != nil {
					return cli.Exit(fmt.Sprintf("error: write arrow: %v", err), 1)
				}
				log.Info("hidden written", "path", arrowPath, "format", "arrow")
			}
			return nil
		},
	}
}

func writeArrowFile(path string, out *gru.Outputs) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gruio.WriteHiddenArrow(f, &out.Batch, &out.Hidden); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
