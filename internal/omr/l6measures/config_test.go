package l6measures

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/sheet.skeleton/internal/config"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

func TestConfigFromTuning_RoundsToPixels(t *testing.T) {
	tc := config.EmptyTuningConfig()
	cfg := ConfigFromTuning(tc, l1raster.Scale{Interline: 13})
	assert.Equal(t, 26, cfg.MaxDoubleBarDx)
	assert.Equal(t, 26, cfg.MinMeasureWidth)
	assert.Equal(t, 3, cfg.MaxExtensionDx)
	assert.InDelta(t, 0.5, cfg.MaxDeltaSlope, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(l1raster.Scale{Interline: 10})
	assert.Equal(t, 20, cfg.MaxDoubleBarDx)
	assert.Equal(t, 20, cfg.MinMeasureWidth)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{}).WithMaxDoubleBarDx(-1).Validate())
	assert.Error(t, (&Config{}).WithMinMeasureWidth(-1).Validate())
	assert.Error(t, (&Config{}).WithMaxExtensionDx(-1).Validate())
	assert.Error(t, (&Config{}).WithMaxDeltaSlope(-0.1).Validate())
	_, err := NewAssembler(&Config{MinMeasureWidth: -5})
	assert.Error(t, err)
}
