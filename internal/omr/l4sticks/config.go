package l4sticks

import (
	"fmt"

	"github.com/banshee-data/sheet.skeleton/internal/config"
)

// Config holds the stick reconciliation parameters.
type Config struct {
	MinPointNb         int     // runs used to fit a tangent (default: 3)
	MaxBorderAdjacency float64 // far-side adjacency ratio below which a one-run neighbour is a border (default: 0.7)
	MaxDeltaSlope      float64 // tangent slope divergence before both sides are merged into one axis (default: 0.5)
	PatchGreyLevel     uint8   // intensity of synthesized pixels (default: 200)
}

// DefaultConfig returns a Config loaded from the canonical tuning defaults
// file (config/tuning.defaults.json).
func DefaultConfig() *Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) *Config {
	return &Config{
		MinPointNb:         cfg.GetMinPointNb(),
		MaxBorderAdjacency: cfg.GetMaxBorderAdjacency(),
		MaxDeltaSlope:      cfg.GetMaxDeltaSlope(),
		PatchGreyLevel:     uint8(cfg.GetPatchGreyLevel()),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MinPointNb < 2 {
		return fmt.Errorf("MinPointNb must be at least 2, got %d", c.MinPointNb)
	}
	if c.MaxBorderAdjacency < 0 || c.MaxBorderAdjacency > 1 {
		return fmt.Errorf("MaxBorderAdjacency must be in [0, 1], got %f", c.MaxBorderAdjacency)
	}
	if c.MaxDeltaSlope < 0 {
		return fmt.Errorf("MaxDeltaSlope must be non-negative, got %f", c.MaxDeltaSlope)
	}
	if c.PatchGreyLevel == 0 || c.PatchGreyLevel == 255 {
		return fmt.Errorf("PatchGreyLevel must differ from foreground and background, got %d", c.PatchGreyLevel)
	}
	return nil
}

// WithMinPointNb sets the number of runs used for tangent fitting.
func (c *Config) WithMinPointNb(n int) *Config {
	c.MinPointNb = n
	return c
}

// WithMaxBorderAdjacency sets the border adjacency ratio.
func (c *Config) WithMaxBorderAdjacency(r float64) *Config {
	c.MaxBorderAdjacency = r
	return c
}

// WithMaxDeltaSlope sets the tangent divergence tolerance.
func (c *Config) WithMaxDeltaSlope(s float64) *Config {
	c.MaxDeltaSlope = s
	return c
}

// WithPatchGreyLevel sets the patch intensity.
func (c *Config) WithPatchGreyLevel(level uint8) *Config {
	c.PatchGreyLevel = level
	return c
}
