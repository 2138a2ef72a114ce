package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meigma/seqscan"
)

// Config is the optional YAML configuration file. Command-line flags take
// precedence over values set here.
type Config struct {
	// Workers is the number of concurrent workers. 0 uses GOMAXPROCS,
	// negative values run serially.
	Workers int `yaml:"workers"`

	// Backend is "pipeline" or "partition".
	Backend string `yaml:"backend"`

	// FailurePolicy is "fail-fast" or "skip".
	FailurePolicy string `yaml:"failure_policy"`

	// StrictBlockIndex validates block index monotonicity at load time.
	StrictBlockIndex bool `yaml:"strict_block_index"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Match selects what to count.
	Match MatchConfig `yaml:"match"`
}

// MatchConfig selects the matcher.
type MatchConfig struct {
	// Kind is "sequence" (count a fixed pattern) or "class" (count bytes in a set).
	Kind string `yaml:"kind"`

	// Expr is the pattern or byte set.
	Expr string `yaml:"expr"`
}

func defaultConfig() Config {
	return Config{
		Backend:          "pipeline",
		FailurePolicy:    "fail-fast",
		StrictBlockIndex: true,
		LogLevel:         "warn",
		Match: MatchConfig{
			Kind: "sequence",
			Expr: "CAT",
		},
	}
}

// loadConfig reads path over the defaults. Unknown keys are rejected.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// archiveOptions translates the configuration into archive options.
func (c Config) archiveOptions(logger *slog.Logger) ([]seqscan.Option, error) {
	var backend seqscan.Backend
	switch c.Backend {
	case "pipeline", "":
		backend = seqscan.BackendPipeline
	case "partition":
		backend = seqscan.BackendPartition
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}

	var policy seqscan.FailurePolicy
	switch c.FailurePolicy {
	case "fail-fast", "":
		policy = seqscan.FailFast
	case "skip":
		policy = seqscan.SkipAndContinue
	default:
		return nil, fmt.Errorf("unknown failure policy %q", c.FailurePolicy)
	}

	return []seqscan.Option{
		seqscan.WithWorkers(c.Workers),
		seqscan.WithBackend(backend),
		seqscan.WithFailurePolicy(policy),
		seqscan.WithStrictBlockIndex(c.StrictBlockIndex),
		seqscan.WithLogger(logger),
	}, nil
}

func (c Config) logLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
