package l5bars

import (
	"fmt"

	"github.com/banshee-data/sheet.skeleton/internal/config"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

// Config holds the alignment tolerances, already resolved to pixels.
type Config struct {
	MaxAlignShiftDx float64 // horizontal shift allowed between staves, pixels (default: 0.5 interline)
}

// DefaultConfig returns a Config loaded from the canonical tuning defaults
// file (config/tuning.defaults.json) and resolved with scale.
func DefaultConfig(scale l1raster.Scale) *Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig(), scale)
}

// ConfigFromTuning builds a Config from a loaded TuningConfig. Interline
// fractions are converted to pixels with scale.
func ConfigFromTuning(cfg *config.TuningConfig, scale l1raster.Scale) *Config {
	return &Config{
		MaxAlignShiftDx: scale.ToPixelsDouble(l1raster.Fraction(cfg.GetMaxAlignShiftDx())),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxAlignShiftDx < 0 {
		return fmt.Errorf("MaxAlignShiftDx must be non-negative, got %f", c.MaxAlignShiftDx)
	}
	return nil
}

// WithMaxAlignShiftDx sets the shift tolerance in pixels.
func (c *Config) WithMaxAlignShiftDx(dx float64) *Config {
	c.MaxAlignShiftDx = dx
	return c
}
