package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root of the tunable parameters of the sheet pipeline.
// Pixel-valued fields are raw pixel counts; fields documented as interline
// fractions are resolved through the sheet Scale at run time.
type TuningConfig struct {
	// Binarization (pixel statistics)
	HalfWindow         *int     `json:"half_window,omitempty"`          // pixels
	VerticalHalfWindow *int     `json:"vertical_half_window,omitempty"` // pixels, 0 = full height
	KFactor            *float64 `json:"k_factor,omitempty"`

	// Run graph
	MaxLengthRatio *float64 `json:"max_length_ratio,omitempty"` // 0 disables the junction ratio policy

	// Stick reconciliation
	MinPointNb         *int     `json:"min_point_nb,omitempty"`
	MaxBorderAdjacency *float64 `json:"max_border_adjacency,omitempty"` // ratio in [0,1]
	MaxDeltaSlope      *float64 `json:"max_delta_slope,omitempty"`
	PatchGreyLevel     *int     `json:"patch_grey_level,omitempty"` // 1..254

	// Bars and measures (interline fractions)
	MaxAlignShiftDx *float64 `json:"max_align_shift_dx,omitempty"`
	MaxDoubleBarDx  *float64 `json:"max_double_bar_dx,omitempty"`
	MaxExtensionDx  *float64 `json:"max_extension_dx,omitempty"`
	MinMeasureWidth *float64 `json:"min_measure_width,omitempty"`

	// Default geometric classifier
	MinBarHeight     *float64 `json:"min_bar_height,omitempty"`     // fraction of staff height
	MaxBarThickness  *float64 `json:"max_bar_thickness,omitempty"`  // interline fraction
	MinLineLength    *float64 `json:"min_line_length,omitempty"`    // interline fraction
	MaxLineThickness *float64 `json:"max_line_thickness,omitempty"` // interline fraction

	// Scheduling
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseTuningConfig(data)
}

// ParseTuningConfig decodes and validates a JSON tuning document.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/omr/l2binarize/
		"../../../../" + DefaultConfigPath, // from internal/omr/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.HalfWindow != nil && *c.HalfWindow < 0 {
		return fmt.Errorf("half_window must be non-negative, got %d", *c.HalfWindow)
	}
	if c.VerticalHalfWindow != nil && *c.VerticalHalfWindow < 0 {
		return fmt.Errorf("vertical_half_window must be non-negative, got %d", *c.VerticalHalfWindow)
	}
	if c.KFactor != nil && *c.KFactor < 0 {
		return fmt.Errorf("k_factor must be non-negative, got %f", *c.KFactor)
	}
	if c.MaxLengthRatio != nil && *c.MaxLengthRatio != 0 && *c.MaxLengthRatio < 1 {
		return fmt.Errorf("max_length_ratio must be 0 or >= 1, got %f", *c.MaxLengthRatio)
	}
	if c.MinPointNb != nil && *c.MinPointNb < 2 {
		return fmt.Errorf("min_point_nb must be at least 2, got %d", *c.MinPointNb)
	}
	if c.MaxBorderAdjacency != nil {
		if *c.MaxBorderAdjacency < 0 || *c.MaxBorderAdjacency > 1 {
			return fmt.Errorf("max_border_adjacency must be between 0 and 1, got %f", *c.MaxBorderAdjacency)
		}
	}
	if c.PatchGreyLevel != nil {
		if *c.PatchGreyLevel <= 0 || *c.PatchGreyLevel >= 255 {
			return fmt.Errorf("patch_grey_level must be strictly between 0 and 255, got %d", *c.PatchGreyLevel)
		}
	}
	for name, v := range map[string]*float64{
		"max_delta_slope":    c.MaxDeltaSlope,
		"max_align_shift_dx": c.MaxAlignShiftDx,
		"max_double_bar_dx":  c.MaxDoubleBarDx,
		"max_extension_dx":   c.MaxExtensionDx,
		"min_measure_width":  c.MinMeasureWidth,
		"min_bar_height":     c.MinBarHeight,
		"max_bar_thickness":  c.MaxBarThickness,
		"min_line_length":    c.MinLineLength,
		"max_line_thickness": c.MaxLineThickness,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetHalfWindow returns the half_window value or the default.
func (c *TuningConfig) GetHalfWindow() int {
	if c.HalfWindow == nil {
		return 18
	}
	return *c.HalfWindow
}

// GetVerticalHalfWindow returns the vertical_half_window value or the default (full height).
func (c *TuningConfig) GetVerticalHalfWindow() int {
	if c.VerticalHalfWindow == nil {
		return 0
	}
	return *c.VerticalHalfWindow
}

// GetKFactor returns the k_factor value or the default.
func (c *TuningConfig) GetKFactor() float64 {
	if c.KFactor == nil {
		return 0.5
	}
	return *c.KFactor
}

// GetMaxLengthRatio returns the max_length_ratio value or the default.
func (c *TuningConfig) GetMaxLengthRatio() float64 {
	if c.MaxLengthRatio == nil {
		return 2.0
	}
	return *c.MaxLengthRatio
}

// GetMinPointNb returns the min_point_nb value or the default.
func (c *TuningConfig) GetMinPointNb() int {
	if c.MinPointNb == nil {
		return 3
	}
	return *c.MinPointNb
}

// GetMaxBorderAdjacency returns the max_border_adjacency value or the default.
func (c *TuningConfig) GetMaxBorderAdjacency() float64 {
	if c.MaxBorderAdjacency == nil {
		return 0.7
	}
	return *c.MaxBorderAdjacency
}

// GetMaxDeltaSlope returns the max_delta_slope value or the default.
func (c *TuningConfig) GetMaxDeltaSlope() float64 {
	if c.MaxDeltaSlope == nil {
		return 0.5
	}
	return *c.MaxDeltaSlope
}

// GetPatchGreyLevel returns the patch_grey_level value or the default.
func (c *TuningConfig) GetPatchGreyLevel() int {
	if c.PatchGreyLevel == nil {
		return 200
	}
	return *c.PatchGreyLevel
}

// GetMaxAlignShiftDx returns the max_align_shift_dx value (interline) or the default.
func (c *TuningConfig) GetMaxAlignShiftDx() float64 {
	if c.MaxAlignShiftDx == nil {
		return 0.5
	}
	return *c.MaxAlignShiftDx
}

// GetMaxDoubleBarDx returns the max_double_bar_dx value (interline) or the default.
func (c *TuningConfig) GetMaxDoubleBarDx() float64 {
	if c.MaxDoubleBarDx == nil {
		return 2.0
	}
	return *c.MaxDoubleBarDx
}

// GetMaxExtensionDx returns the max_extension_dx value (interline) or the default.
func (c *TuningConfig) GetMaxExtensionDx() float64 {
	if c.MaxExtensionDx == nil {
		return 0.25
	}
	return *c.MaxExtensionDx
}

// GetMinMeasureWidth returns the min_measure_width value (interline) or the default.
func (c *TuningConfig) GetMinMeasureWidth() float64 {
	if c.MinMeasureWidth == nil {
		return 2.0
	}
	return *c.MinMeasureWidth
}

// GetMinBarHeight returns the min_bar_height value or the default.
func (c *TuningConfig) GetMinBarHeight() float64 {
	if c.MinBarHeight == nil {
		return 0.8
	}
	return *c.MinBarHeight
}

// GetMaxBarThickness returns the max_bar_thickness value or the default.
func (c *TuningConfig) GetMaxBarThickness() float64 {
	if c.MaxBarThickness == nil {
		return 0.5
	}
	return *c.MaxBarThickness
}

// GetMinLineLength returns the min_line_length value or the default.
func (c *TuningConfig) GetMinLineLength() float64 {
	if c.MinLineLength == nil {
		return 4.0
	}
	return *c.MinLineLength
}

// GetMaxLineThickness returns the max_line_thickness value or the default.
func (c *TuningConfig) GetMaxLineThickness() float64 {
	if c.MaxLineThickness == nil {
		return 0.3
	}
	return *c.MaxLineThickness
}

// GetWorkers returns the workers value or the default. Zero means one
// worker per system.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}
