package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}

	if err := c.Ensemble.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ensemble: %w", err))
	}

	if err := c.Export.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	}

	if err := c.Query.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("query: %w", err))
	}

	if c.Parameters.FaultMult != nil {
		if err := c.Parameters.FaultMult.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("parameters.faultmult: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the ensemble configuration.
func (c *EnsembleConfig) Validate() error {
	var errs []error

	if c.Size <= 0 {
		errs = append(errs, errors.New("size must be positive"))
	}
	if c.IOWorkers < 0 {
		errs = append(errs, errors.New("io_workers must be >= 0"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the export configuration.
func (c *ExportConfig) Validate() error {
	switch c.Compression {
	case "", "none", "snappy", "zstd", "lz4", "gzip":
	default:
		return fmt.Errorf("compression must be one of: none, snappy, zstd, lz4, gzip")
	}

	if c.Compression == "zstd" && (c.Level < 0 || c.Level > 22) {
		return errors.New("level for zstd must be between 0 and 22")
	}
	return nil
}

// Validate checks the query configuration.
func (c *QueryConfig) Validate() error {
	var errs []error

	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be >= 0"))
	}
	if c.MaxRows < 0 {
		errs = append(errs, errors.New("max_rows must be >= 0"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
