// Package config loads and validates the toolkit configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ovland/enkit/internal/param/faultmult"
)

// Config represents the complete toolkit configuration.
type Config struct {
	// DataDir is the root directory for ensemble member files and
	// exported snapshots.
	DataDir string `yaml:"data_dir"`

	// Ensemble defines the ensemble shape and run parameters.
	Ensemble EnsembleConfig `yaml:"ensemble"`

	// Export configures snapshot export.
	Export ExportConfig `yaml:"export"`

	// Query configures the snapshot query service.
	Query QueryConfig `yaml:"query"`

	// Parameters holds the per-kind parameter sections.
	Parameters ParametersConfig `yaml:"parameters"`
}

// EnsembleConfig defines the ensemble shape and run parameters.
type EnsembleConfig struct {
	// Size is the number of ensemble members.
	Size int `yaml:"size"`

	// Seed seeds prior sampling; member i draws from seed+i.
	Seed int64 `yaml:"seed"`

	// IOWorkers bounds parallel member-file I/O. Zero means one worker
	// per member.
	IOWorkers int `yaml:"io_workers"`
}

// ExportConfig configures snapshot export.
type ExportConfig struct {
	// Compression is the Parquet compression algorithm: snappy, zstd,
	// lz4, gzip, none.
	Compression string `yaml:"compression"`

	// Level is the compression level (for zstd: 1-22).
	Level int `yaml:"level"`
}

// QueryConfig configures the snapshot query service.
type QueryConfig struct {
	// MemoryLimit is the DuckDB memory limit.
	MemoryLimit string `yaml:"memory_limit"`

	// Timeout is the query timeout.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRows is the maximum number of rows returned.
	MaxRows int `yaml:"max_rows"`
}

// ParametersConfig holds the per-kind parameter sections. A section is
// active when present.
type ParametersConfig struct {
	// FaultMult is the fault-multiplier parameter set.
	FaultMult *faultmult.Config `yaml:"faultmult"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "/var/lib/enkit",
		Ensemble: EnsembleConfig{
			Size:      100,
			Seed:      1,
			IOWorkers: 8,
		},
		Export: ExportConfig{
			Compression: "zstd",
			Level:       3,
		},
		Query: QueryConfig{
			MemoryLimit: "2GB",
			Timeout:     30 * time.Second,
			MaxRows:     1000000,
		},
	}
}

// SnapshotDir returns the directory exported snapshots live in.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}

// EnsembleDir returns the directory member files live in.
func (c *Config) EnsembleDir() string {
	return filepath.Join(c.DataDir, "ensemble")
}
