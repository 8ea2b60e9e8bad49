package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/gruio"
	"github.com/samcharles93/lodgru/internal/logger"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	// fileConfig is loaded once by setupContext.
	fileConfig Config
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/lodgru/config.yaml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// setupContext loads the config file and installs the logger every
// subcommand retrieves with logger.FromContext.
func setupContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, err
	}
	fileConfig = cfg
	applyLogConfig(cmd, cfg, &logLevel, &logFormat)
	if debug {
		logLevel = "debug"
	}
	log, err := logger.Setup(os.Stderr, logLevel, logFormat)
	if err != nil {
		return ctx, err
	}
	return logger.WithContext(ctx, log), nil
}

// problemOptions are the flags shared by commands that take a problem,
// either from a JSON file or generated from a seed.
type problemOptions struct {
	problemPath    string
	lengths        string
	hidden         int64
	seed           int64
	withBias       bool
	withH0         bool
	reverse        bool
	activation     string
	gateActivation string
}

func (o *problemOptions) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "problem",
			Aliases:     []string{"p"},
			Usage:       "path to problem JSON file",
			Destination: &o.problemPath,
		},
		&cli.StringFlag{
			Name:        "lengths",
			Usage:       "comma-separated sequence lengths for a generated problem",
			Value:       "2,4,3",
			Destination: &o.lengths,
		},
		&cli.Int64Flag{
			Name:        "hidden",
			Aliases:     []string{"d"},
			Usage:       "hidden size for a generated problem",
			Value:       5,
			Destination: &o.hidden,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "RNG seed for a generated problem",
			Value:       1,
			Destination: &o.seed,
		},
		&cli.BoolFlag{
			Name:        "with-bias",
			Usage:       "generate a bias vector",
			Destination: &o.withBias,
		},
		&cli.BoolFlag{
			Name:        "with-h0",
			Usage:       "generate an initial hidden state",
			Destination: &o.withH0,
		},
		&cli.BoolFlag{
			Name:        "reverse",
			Usage:       "process sequences last-to-first",
			Destination: &o.reverse,
		},
		&cli.StringFlag{
			Name:        "activation",
			Usage:       "candidate activation (identity, sigmoid, tanh, relu)",
			Destination: &o.activation,
		},
		&cli.StringFlag{
			Name:        "gate-activation",
			Usage:       "gate activation (identity, sigmoid, tanh, relu)",
			Destination: &o.gateActivation,
		},
	}
}

// load resolves the problem. Explicit activation and reverse flags override
// a problem file; generated problems also take activations from the config
// file.
func (o *problemOptions) load(cmd *cli.Command) (gru.Inputs, gru.Config, error) {
	var (
		in  gru.Inputs
		cfg gru.Config
	)
	if o.problemPath != "" {
		p, err := gruio.LoadProblem(o.problemPath)
		if err != nil {
			return gru.Inputs{}, gru.Config{}, err
		}
		in, cfg, err = p.Build()
		if err != nil {
			return gru.Inputs{}, gru.Config{}, err
		}
		if cmd.IsSet("reverse") {
			cfg.Reverse = o.reverse
		}
	} else {
		lengths, err := parseLengths(o.lengths)
		if err != nil {
			return gru.Inputs{}, gru.Config{}, err
		}
		if o.hidden <= 0 {
			return gru.Inputs{}, gru.Config{}, fmt.Errorf("%w: hidden size must be positive, got %d", gru.ErrInvalidInput, o.hidden)
		}
		in = gruio.RandomInputs(gruio.RandomSpec{
			Lengths:  lengths,
			Hidden:   int(o.hidden),
			Seed:     o.seed,
			WithBias: o.withBias,
			WithH0:   o.withH0,
		})
		cfg = gru.DefaultConfig()
		cfg.Reverse = o.reverse
		applyActivationConfig(cmd, fileConfig, &o.activation, &o.gateActivation)
	}

	if o.activation != "" {
		a, err := gru.ParseActivation(o.activation)
		if err != nil {
			return gru.Inputs{}, gru.Config{}, err
		}
		cfg.Activation = a
	}
	if o.gateActivation != "" {
		a, err := gru.ParseActivation(o.gateActivation)
		if err != nil {
			return gru.Inputs{}, gru.Config{}, err
		}
		cfg.GateActivation = a
	}
	return in, cfg, nil
}

func workersFlag(dst *int64) cli.Flag {
	return &cli.Int64Flag{
		Name:        "workers",
		Aliases:     []string{"j"},
		Usage:       "GEMM worker goroutines for the fused kernel (0 = GOMAXPROCS)",
		Destination: dst,
	}
}
