package l5bars

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/sheet.skeleton/internal/config"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

func TestConfigFromTuning_ResolvesInterline(t *testing.T) {
	cfg := ConfigFromTuning(config.EmptyTuningConfig(), l1raster.Scale{Interline: 20})
	assert.InDelta(t, 10.0, cfg.MaxAlignShiftDx, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(l1raster.Scale{Interline: 16})
	assert.InDelta(t, 8.0, cfg.MaxAlignShiftDx, 1e-9)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, (&Config{}).WithMaxAlignShiftDx(-1).Validate())
	_, err := NewAligner(&Config{MaxAlignShiftDx: -1})
	assert.Error(t, err)
}
