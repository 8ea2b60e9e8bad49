package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lodgru/internal/gruio"
	"github.com/samcharles93/lodgru/internal/tensor"
	"github.com/samcharles93/lodgru/internal/version"
)

func infoCmd() *cli.Command {
	var jsonOut bool

	return &cli.Command{
		Name:  "info",
		Usage: "Print host CPU features and worker settings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print as JSON",
				Destination: &jsonOut,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := tensor.Features()
			if jsonOut {
				return gruio.EncodeJSON(os.Stdout, struct {
					Version version.Info `json:"version"`
					tensor.CPUInfo
				}{version.Resolve(), info})
			}
			fmt.Printf("version:    %s\n", version.String())
			fmt.Printf("os/arch:    %s/%s\n", info.GoOS, info.GoArch)
			fmt.Printf("cpus:       %d\n", info.CPUs)
			fmt.Printf("gomaxprocs: %d\n", info.GOMAXPROCS)
			fmt.Printf("gemm pool:  %d workers\n", info.GemmPool)
			fmt.Printf("features:   %s\n", enabledFeatures(info.Features))
			return nil
		},
	}
}

func enabledFeatures(features map[string]bool) string {
	var names []string
	for name, ok := range features {
		if ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	slices.Sort(names)
	return strings.Join(names, " ")
}
