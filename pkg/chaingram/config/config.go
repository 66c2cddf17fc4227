// Package config loads the yaml configuration and assembles the ingest
// components from it.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/cognitext/chaingram/pkg/chaingram/internalerr"
)

const gib = 1 << 30

// StoreConfig selects the export backend.
type StoreConfig struct {
	// Driver is "sqlite", "postgres" or "memory".
	Driver string `yaml:"driver"`
	// DSN is the database path (sqlite) or connection string (postgres).
	DSN string `yaml:"dsn"`
}

// Config holds the full runtime configuration.
type Config struct {
	// HalfParaLen is the sliding-window half-width in tokens.
	HalfParaLen int `yaml:"half_para_len"`
	// PruneSizeGiB is the active-region size that triggers compaction.
	PruneSizeGiB float64 `yaml:"prune_size_gib"`
	// PruneThreshold is the minimum distinct-topic count an entry needs to
	// survive compaction.
	PruneThreshold int `yaml:"prune_threshold"`

	// Workers is the number of parallel indexing workers, each owning an
	// independent index.
	Workers int `yaml:"workers"`
	// QueueDepth bounds the document and snapshot hand-off queues.
	QueueDepth int `yaml:"queue_depth"`
	// DocsPerIndex is how many documents a worker feeds one index before
	// handing its snapshot off for export.
	DocsPerIndex int `yaml:"docs_per_index"`

	StoplistPath string      `yaml:"stoplist"`
	Store        StoreConfig `yaml:"store"`
}

// Default returns the configuration with the canonical defaults.
func Default() Config {
	return Config{
		HalfParaLen:    64,
		PruneSizeGiB:   2.0,
		PruneThreshold: 16,
		Workers:        runtime.NumCPU(),
		QueueDepth:     64,
		DocsPerIndex:   100000,
		Store:          StoreConfig{Driver: "sqlite", DSN: "chaingram.db"},
	}
}

// PruneSizeBytes converts the configured GiB value to bytes.
func (c Config) PruneSizeBytes() int {
	return int(c.PruneSizeGiB * gib)
}

// Validate checks the configuration for nonsensical values.
func (c Config) Validate() error {
	if c.HalfParaLen < 1 {
		return fmt.Errorf("half_para_len must be positive: %w", internalerr.ErrInvalidConfig)
	}
	if c.PruneSizeGiB <= 0 {
		return fmt.Errorf("prune_size_gib must be positive: %w", internalerr.ErrInvalidConfig)
	}
	if c.PruneThreshold < 1 {
		return fmt.Errorf("prune_threshold must be positive: %w", internalerr.ErrInvalidConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive: %w", internalerr.ErrInvalidConfig)
	}
	if c.QueueDepth < 1 {
		return fmt.Errorf("queue_depth must be positive: %w", internalerr.ErrInvalidConfig)
	}
	if c.DocsPerIndex < 1 {
		return fmt.Errorf("docs_per_index must be positive: %w", internalerr.ErrInvalidConfig)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown store driver %q: %w", c.Store.Driver, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Load reads a yaml configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
