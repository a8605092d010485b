package balancer

import (
	"fmt"
	"os"
	"time"

	"github.com/burrowlabs/picket/pkg/backoff"
	"github.com/burrowlabs/picket/pkg/strategy"
	"gopkg.in/yaml.v3"
)

// Config is the YAML manifest form of a balancer's build-time parameters.
// It covers the declarative subset: strategies that need code (metric
// scorers, custom connectors) are wired programmatically with options.
type Config struct {
	Name string `yaml:"name"`

	// ActiveCount caps acquired endpoints; 0 or omitted means all
	ActiveCount int `yaml:"activeCount,omitempty"`

	// QuarantineThreshold caps the failure count fed to the backoff;
	// 0 or omitted leaves it uncapped
	QuarantineThreshold int `yaml:"quarantineThreshold,omitempty"`

	Backoff BackoffConfig `yaml:"backoff,omitempty"`

	// Selection is one of round_robin, random, weighted_random,
	// least_weight (default: round_robin)
	Selection string `yaml:"selection,omitempty"`
}

// BackoffConfig selects a backoff policy by kind
type BackoffConfig struct {
	// Kind is one of constant, exponential, exponential_jitter
	// (default: constant)
	Kind string   `yaml:"kind,omitempty"`
	Base Duration `yaml:"base,omitempty"`
	Max  Duration `yaml:"max,omitempty"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "30s"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like 30s: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadConfig reads and parses a balancer manifest
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &config, nil
}

// ConfigOptions translates a manifest into balancer options
func ConfigOptions[C comparable, M any](config *Config) ([]Option[C, M], error) {
	var opts []Option[C, M]

	if config.Name != "" {
		opts = append(opts, WithName[C, M](config.Name))
	}

	if config.ActiveCount > 0 {
		opts = append(opts, WithActiveCountPolicy[C, M](FixedActiveCount(config.ActiveCount)))
	}

	if config.QuarantineThreshold > 0 {
		opts = append(opts, WithQuarantineThreshold[C, M](config.QuarantineThreshold))
	}

	backoffFn, err := config.Backoff.build()
	if err != nil {
		return nil, err
	}
	if backoffFn != nil {
		opts = append(opts, WithBackoff[C, M](backoffFn))
	}

	switch config.Selection {
	case "", "round_robin":
		// Balancer default
	case "random":
		opts = append(opts, WithSelection[C, M](strategy.Random[C]()))
	case "weighted_random":
		opts = append(opts, WithSelection[C, M](strategy.WeightedRandom[C]()))
	case "least_weight":
		opts = append(opts, WithSelection[C, M](strategy.LeastWeight[C]()))
	default:
		return nil, fmt.Errorf("unknown selection strategy: %s", config.Selection)
	}

	return opts, nil
}

// build resolves the configured backoff kind; nil means keep the default
func (c BackoffConfig) build() (backoff.Func, error) {
	base := time.Duration(c.Base)
	max := time.Duration(c.Max)

	switch c.Kind {
	case "":
		if base > 0 {
			return backoff.Constant(base), nil
		}
		return nil, nil
	case "constant":
		return backoff.Constant(base), nil
	case "exponential":
		return backoff.Exponential(base, max), nil
	case "exponential_jitter":
		return backoff.ExponentialJitter(base, max), nil
	default:
		return nil, fmt.Errorf("unknown backoff kind: %s", c.Kind)
	}
}
