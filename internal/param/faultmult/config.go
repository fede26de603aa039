package faultmult

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	enkerr "github.com/ovland/enkit/internal/errors"
	"github.com/ovland/enkit/internal/param/transform"
)

// Fault describes one fault segment: its label, the physical bounds of the
// transmissibility multiplier in linear space, and the prior distribution
// the multiplier is sampled from (normal in log space).
type Fault struct {
	// Name is the fault segment label, unique within the config.
	Name string `yaml:"name"`

	// Min is the lower physical bound in linear space.
	Min float64 `yaml:"min"`

	// Max is the upper physical bound in linear space.
	Max float64 `yaml:"max"`

	// PriorMean is the mean of the log-space prior.
	PriorMean float64 `yaml:"prior_mean"`

	// PriorStd is the standard deviation of the log-space prior.
	// Zero means the prior is deterministic at PriorMean.
	PriorStd float64 `yaml:"prior_std"`
}

// Config is the immutable descriptor shared by every fault-multiplier node
// of one parameter set. It is owned by the configuration subsystem and
// referenced, never copied, by nodes; its lifetime exceeds that of any node
// referencing it.
type Config struct {
	// Transform selects the output transform kind: "exp" (default) or "none".
	Transform string `yaml:"transform"`

	// Faults lists the fault segments in buffer order.
	Faults []Fault `yaml:"faults"`
}

// LoadConfig loads a fault-multiplier config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faultmult config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse faultmult config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate faultmult config: %w", err)
	}

	return cfg, nil
}

// Len returns the number of fault segments.
func (c *Config) Len() int {
	return len(c.Faults)
}

// Names returns the ordered fault segment labels.
func (c *Config) Names() []string {
	names := make([]string, len(c.Faults))
	for i, f := range c.Faults {
		names[i] = f.Name
	}
	return names
}

// TransformKind returns the parsed transform kind.
func (c *Config) TransformKind() transform.Kind {
	k, _ := transform.ParseKind(c.Transform)
	return k
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Faults) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one fault required", enkerr.ErrInvalidConfig))
	}

	kind, err := transform.ParseKind(c.Transform)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", enkerr.ErrInvalidConfig, err))
	}

	seen := make(map[string]bool, len(c.Faults))
	for i, f := range c.Faults {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("%w: fault %d has no name", enkerr.ErrInvalidConfig, i))
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate fault name %q", enkerr.ErrInvalidConfig, f.Name))
		}
		seen[f.Name] = true

		if f.Min > f.Max {
			errs = append(errs, fmt.Errorf("%w: fault %q: min %g > max %g", enkerr.ErrInvalidConfig, f.Name, f.Min, f.Max))
		}
		if kind == transform.KindExp && f.Min < 0 {
			errs = append(errs, fmt.Errorf("%w: fault %q: min must be >= 0 for exp transform", enkerr.ErrInvalidConfig, f.Name))
		}
		if f.PriorStd < 0 {
			errs = append(errs, fmt.Errorf("%w: fault %q: prior_std must be >= 0", enkerr.ErrInvalidConfig, f.Name))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
