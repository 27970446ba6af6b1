package l2binarize

import (
	"fmt"

	"github.com/banshee-data/sheet.skeleton/internal/config"
)

// Config holds the adaptive threshold parameters.
type Config struct {
	HalfWindow         int     // columns on each side of the current one (default: 18)
	VerticalHalfWindow int     // rows on each side of the current one, 0 = full height (default: 0)
	KFactor            float64 // standard deviations below the mean (default: 0.5)
}

// DefaultConfig returns a Config loaded from the canonical tuning defaults
// file (config/tuning.defaults.json).
// Panics if the file cannot be found, intended for tests and binaries that
// have already validated config availability.
func DefaultConfig() *Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) *Config {
	return &Config{
		HalfWindow:         cfg.GetHalfWindow(),
		VerticalHalfWindow: cfg.GetVerticalHalfWindow(),
		KFactor:            cfg.GetKFactor(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.HalfWindow < 0 {
		return fmt.Errorf("HalfWindow must be non-negative, got %d", c.HalfWindow)
	}
	if c.VerticalHalfWindow < 0 {
		return fmt.Errorf("VerticalHalfWindow must be non-negative, got %d", c.VerticalHalfWindow)
	}
	if c.KFactor < 0 {
		return fmt.Errorf("KFactor must be non-negative, got %f", c.KFactor)
	}
	return nil
}

// WithHalfWindow sets the horizontal half window in pixels.
func (c *Config) WithHalfWindow(h int) *Config {
	c.HalfWindow = h
	return c
}

// WithVerticalHalfWindow sets the vertical half window in pixels.
func (c *Config) WithVerticalHalfWindow(v int) *Config {
	c.VerticalHalfWindow = v
	return c
}

// WithKFactor sets the threshold k-factor.
func (c *Config) WithKFactor(k float64) *Config {
	c.KFactor = k
	return c
}
