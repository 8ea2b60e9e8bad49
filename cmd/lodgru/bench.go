package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/logger"
)

func benchCmd() *cli.Command {
	var (
		problem    problemOptions
		warmupRuns int64
		benchRuns  int64
		workers    int64
	)

	flags := problem.flags()
	flags = append(flags,
		&cli.Int64Flag{
			Name:        "warmup",
			Usage:       "number of warmup runs per kernel",
			Value:       1,
			Destination: &warmupRuns,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Usage:       "number of timed runs per kernel",
			Value:       5,
			Destination: &benchRuns,
		},
		workersFlag(&workers),
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time the reference and fused kernels on one problem",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyEngineConfig(cmd, fileConfig, nil, &workers, nil)
			if benchRuns <= 0 {
				return cli.Exit("error: --runs must be positive", 1)
			}

			in, cfg, err := problem.load(cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load problem: %v", err), 1)
			}

			fmt.Println("=== lodgru Benchmark ===")
			fmt.Printf("Sequences:  %d\n", len(in.Lengths))
			fmt.Printf("Rows:       %d\n", in.Input.R)
			fmt.Printf("Hidden:     %d\n", in.FrameSize())
			fmt.Printf("CPUs:       %d\n", runtime.NumCPU())
			fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
			fmt.Printf("Workers:    %d\n", workers)
			fmt.Printf("Warmup:     %d runs\n", warmupRuns)
			fmt.Printf("Runs:       %d\n", benchRuns)
			fmt.Println()

			fmt.Printf("%-10s %12s %12s %12s %14s\n", "Kernel", "Min", "Mean", "Max", "Rows/s")
			for _, k := range gru.Kernels {
				for i := range int(warmupRuns) {
					log.Debug("warmup run", "kernel", k, "run", i+1)
					if _, _, err := timeKernel(k, in, cfg, int(workers)); err != nil {
						return cli.Exit(fmt.Sprintf("error: %s warmup: %v", k, err), 1)
					}
				}

				var sum, lo, hi time.Duration
				for i := range int(benchRuns) {
					_, d, err := timeKernel(k, in, cfg, int(workers))
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %s run %d: %v", k, i+1, err), 1)
					}
					sum += d
					if i == 0 || d < lo {
						lo = d
					}
					if d > hi {
						hi = d
					}
				}
				mean := sum / time.Duration(benchRuns)
				rowsPerSec := float64(in.Input.R) / mean.Seconds()
				fmt.Printf("%-10s %12s %12s %12s %14.0f\n", k,
					lo.Round(time.Microsecond), mean.Round(time.Microsecond), hi.Round(time.Microsecond), rowsPerSec)
			}

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			fmt.Printf("\nMemory: %.1f MB alloc, %.1f MB sys\n",
				float64(mem.Alloc)/(1024*1024),
				float64(mem.Sys)/(1024*1024))
			return nil
		},
	}
}
