package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lodgru/internal/api"
	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		kernelName  string
		workers     int64
		tolerance   float64
		storeSize   int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the GRU HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.StringFlag{
				Name:        "kernel",
				Aliases:     []string{"k"},
				Usage:       "default forward kernel (reference, fused)",
				Value:       string(gru.KernelReference),
				Destination: &kernelName,
			},
			workersFlag(&workers),
			&cli.Float64Flag{
				Name:        "tolerance",
				Usage:       "default tolerance for /v1/gru/validate",
				Value:       1e-8,
				Destination: &tolerance,
			},
			&cli.Int64Flag{
				Name:        "store-size",
				Usage:       "number of forward results kept for GET /v1/gru/results/:id",
				Value:       256,
				Destination: &storeSize,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, fileConfig, &addr)
			applyEngineConfig(cmd, fileConfig, &kernelName, &workers, &tolerance)

			kernel, err := gru.ParseKernel(kernelName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			service := api.NewGRUService(api.ServiceConfig{
				Kernel:    kernel,
				Workers:   int(workers),
				Tolerance: tolerance,
			})
			server := api.NewServer(api.NewResultStore(int(storeSize)), service, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "kernel", kernel)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
