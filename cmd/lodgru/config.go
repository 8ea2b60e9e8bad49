package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the lodgru configuration file
// (~/.config/lodgru/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	// Engine
	Activation     string   `yaml:"activation"`
	GateActivation string   `yaml:"gate_activation"`
	Kernel         string   `yaml:"kernel"`
	Workers        *int64   `yaml:"workers"`
	Tolerance      *float64 `yaml:"tolerance"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lodgru", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyLogConfig applies config file defaults to the logging flags when the
// corresponding CLI flag was not explicitly set.
func applyLogConfig(c *cli.Command, cfg Config, level, format *string) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		*level = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		*format = cfg.LogFormat
	}
}

func applyActivationConfig(c *cli.Command, cfg Config, activation, gateActivation *string) {
	if cfg.Activation != "" && !c.IsSet("activation") {
		*activation = cfg.Activation
	}
	if cfg.GateActivation != "" && !c.IsSet("gate-activation") {
		*gateActivation = cfg.GateActivation
	}
}

// applyEngineConfig applies kernel, worker and tolerance defaults. Any of the
// destinations may be nil when a command has no such flag.
func applyEngineConfig(c *cli.Command, cfg Config, kernel *string, workers *int64, tolerance *float64) {
	if kernel != nil && cfg.Kernel != "" && !c.IsSet("kernel") {
		*kernel = cfg.Kernel
	}
	if workers != nil && cfg.Workers != nil && !c.IsSet("workers") {
		*workers = *cfg.Workers
	}
	if tolerance != nil && cfg.Tolerance != nil && !c.IsSet("tolerance") {
		*tolerance = *cfg.Tolerance
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
