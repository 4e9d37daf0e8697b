package core

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"os"
	"tracestats/sequence"
)

type TruncationPolicy string

const (
	// TruncateKeepFirst retains the first MaxIntervalSamples intervals per
	// context and only counts the rest.
	TruncateKeepFirst TruncationPolicy = "keep-first"
	// TruncateSpill moves full pages of intervals to the spill store.
	TruncateSpill TruncationPolicy = "spill"
)

type Config struct {
	// MaxIntervalSamples bounds the in-memory interval samples per context.
	// Zero keeps every sample in memory.
	MaxIntervalSamples int              `yaml:"max_interval_samples"`
	TruncationPolicy   TruncationPolicy `yaml:"truncation_policy"`
	// SpillDir holds the scratch spill database; empty keeps it in memory.
	SpillDir     string `yaml:"spill_dir"`
	CacheEnabled bool   `yaml:"cache_enabled"`

	ResetIntervalsOnRestart bool `yaml:"reset_intervals_on_restart"`
	// TickGapThreshold flags raw timer gaps that may hide extra wraparounds.
	// Zero means half the timer range.
	TickGapThreshold uint64 `yaml:"tick_gap_threshold"`
	// StackWarnThreshold raises a diagnostic for low-water-marks at or below
	// it. Zero disables the check.
	StackWarnThreshold uint32 `yaml:"stack_warn_threshold"`
	SequenceBits       uint   `yaml:"sequence_bits"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxIntervalSamples:      0,
		TruncationPolicy:        TruncateKeepFirst,
		SpillDir:                "",
		CacheEnabled:            true,
		ResetIntervalsOnRestart: false,
		TickGapThreshold:        0,
		StackWarnThreshold:      0,
		SequenceBits:            sequence.DefaultBits,
	}
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.UnmarshalStrict(buf, config); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return config, nil
}

func (config *Config) Validate() error {
	if config.MaxIntervalSamples < 0 {
		return errors.Errorf("max_interval_samples must be >= 0, got %d", config.MaxIntervalSamples)
	}
	switch config.TruncationPolicy {
	case TruncateKeepFirst, TruncateSpill:
	default:
		return errors.Errorf("unknown truncation_policy %q", config.TruncationPolicy)
	}
	if config.SequenceBits == 0 || config.SequenceBits > 16 {
		return errors.Errorf("sequence_bits must be in [1, 16], got %d", config.SequenceBits)
	}
	return nil
}
