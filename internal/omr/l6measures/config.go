package l6measures

import (
	"fmt"

	"github.com/banshee-data/sheet.skeleton/internal/config"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

// Config holds the measure assembly tolerances, resolved to pixels.
type Config struct {
	MaxDoubleBarDx  int     // distance between the two bars of a double bar (default: 2.0 interline)
	MaxExtensionDx  int     // axis shift between two pieces of one broken bar line (default: 0.25 interline)
	MaxDeltaSlope   float64 // slope difference between two pieces of one broken bar line (default: 0.5)
	MinMeasureWidth int     // narrowest measure at a system edge (default: 2.0 interline)
}

// DefaultConfig returns a Config loaded from the canonical tuning defaults
// file (config/tuning.defaults.json) and resolved with scale.
func DefaultConfig(scale l1raster.Scale) *Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig(), scale)
}

// ConfigFromTuning builds a Config from a loaded TuningConfig. Interline
// fractions are rounded to whole pixels with scale.
func ConfigFromTuning(cfg *config.TuningConfig, scale l1raster.Scale) *Config {
	return &Config{
		MaxDoubleBarDx:  scale.ToPixels(l1raster.Fraction(cfg.GetMaxDoubleBarDx())),
		MaxExtensionDx:  scale.ToPixels(l1raster.Fraction(cfg.GetMaxExtensionDx())),
		MaxDeltaSlope:   cfg.GetMaxDeltaSlope(),
		MinMeasureWidth: scale.ToPixels(l1raster.Fraction(cfg.GetMinMeasureWidth())),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxDoubleBarDx < 0 {
		return fmt.Errorf("MaxDoubleBarDx must be non-negative, got %d", c.MaxDoubleBarDx)
	}
	if c.MaxExtensionDx < 0 {
		return fmt.Errorf("MaxExtensionDx must be non-negative, got %d", c.MaxExtensionDx)
	}
	if c.MaxDeltaSlope < 0 {
		return fmt.Errorf("MaxDeltaSlope must be non-negative, got %f", c.MaxDeltaSlope)
	}
	if c.MinMeasureWidth < 0 {
		return fmt.Errorf("MinMeasureWidth must be non-negative, got %d", c.MinMeasureWidth)
	}
	return nil
}

// WithMaxDoubleBarDx sets the double bar distance in pixels.
func (c *Config) WithMaxDoubleBarDx(dx int) *Config {
	c.MaxDoubleBarDx = dx
	return c
}

// WithMaxExtensionDx sets the broken bar line axis tolerance in pixels.
func (c *Config) WithMaxExtensionDx(dx int) *Config {
	c.MaxExtensionDx = dx
	return c
}

// WithMaxDeltaSlope sets the broken bar line slope tolerance.
func (c *Config) WithMaxDeltaSlope(d float64) *Config {
	c.MaxDeltaSlope = d
	return c
}

// WithMinMeasureWidth sets the minimum edge measure width in pixels.
func (c *Config) WithMinMeasureWidth(w int) *Config {
	c.MinMeasureWidth = w
	return c
}
