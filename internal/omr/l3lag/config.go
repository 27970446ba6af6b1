package l3lag

import (
	"fmt"

	"github.com/banshee-data/sheet.skeleton/internal/config"
)

// Config controls how runs are chained into sections.
type Config struct {
	// MaxLengthRatio stops a section when a run is more than this many
	// times longer (or shorter) than the previous one. 0 disables the check.
	MaxLengthRatio float64 // (default: 2.0)
}

// DefaultConfig returns a Config loaded from the canonical tuning defaults
// file (config/tuning.defaults.json).
func DefaultConfig() *Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) *Config {
	return &Config{MaxLengthRatio: cfg.GetMaxLengthRatio()}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxLengthRatio != 0 && c.MaxLengthRatio < 1 {
		return fmt.Errorf("MaxLengthRatio must be 0 or >= 1, got %f", c.MaxLengthRatio)
	}
	return nil
}

// WithMaxLengthRatio sets the junction length ratio.
func (c *Config) WithMaxLengthRatio(r float64) *Config {
	c.MaxLengthRatio = r
	return c
}

func (c *Config) continues(prev, next Run) bool {
	if c.MaxLengthRatio == 0 {
		return true
	}
	a, b := float64(prev.Length), float64(next.Length)
	if a > b {
		a, b = b, a
	}
	return b <= a*c.MaxLengthRatio
}
