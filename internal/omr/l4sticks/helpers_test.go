package l4sticks

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l2binarize"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
)

// inkMask marks every Foreground pixel of g.
func inkMask(g *l1raster.Gray) *l2binarize.Mask {
	m := l2binarize.NewMask(g.Width(), g.Height())
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			if g.Pixel(x, y) == l1raster.Foreground {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

func buildLag(t *testing.T, g *l1raster.Gray, o l3lag.Orientation) *l3lag.Lag {
	t.Helper()
	lag, err := l3lag.Build("lag", inkMask(g), o, &l3lag.Config{MaxLengthRatio: 2})
	require.NoError(t, err)
	return lag
}

func sectionID(t *testing.T, lag *l3lag.Lag, x, y int) l3lag.SectionID {
	t.Helper()
	var id l3lag.SectionID
	lag.Read(func(v *l3lag.View) {
		s, ok := v.SectionAtPixel(x, y)
		require.True(t, ok, "no section at (%d,%d)", x, y)
		id = s.ID
	})
	return id
}

func testConfig() *Config {
	return &Config{MinPointNb: 3, MaxBorderAdjacency: 0.7, MaxDeltaSlope: 0.5, PatchGreyLevel: 200}
}
