package monitor

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sheet.skeleton/internal/fsutil"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l2binarize"
	"github.com/banshee-data/sheet.skeleton/internal/testutil"
)

func TestProfilePlotter_ObservesBinarization(t *testing.T) {
	g := testutil.NoisyRaster(3, 40, 30)
	testutil.FillRect(g, 10, 5, 12, 25, 0)

	filter, err := l2binarize.NewFilter(g, &l2binarize.Config{HalfWindow: 4, KFactor: 0.5})
	require.NoError(t, err)
	pp := NewProfilePlotter("page-1")
	filter.SetObserver(pp)

	_, err = l2binarize.Materialize(filter)
	require.NoError(t, err)
	assert.Equal(t, 40, pp.SampleCount())

	fs := fsutil.NewMemoryFileSystem()
	files, err := pp.GeneratePlots(fs, "plots")
	require.NoError(t, err)
	assert.Equal(t, []string{"plots/page-1_levels.png", "plots/page-1_foreground.png"}, files)

	for _, name := range files {
		data, err := fs.ReadFile(name)
		require.NoError(t, err)
		_, err = png.DecodeConfig(bytes.NewReader(data))
		assert.NoError(t, err, "%s is not a PNG", name)
	}
}

func TestProfilePlotter_StopAndReset(t *testing.T) {
	pp := NewProfilePlotter("s")
	pp.ObserveColumn(l2binarize.ColumnStats{X: 0, Mean: 200})
	pp.Stop()
	pp.ObserveColumn(l2binarize.ColumnStats{X: 1, Mean: 200})
	assert.Equal(t, 1, pp.SampleCount())

	pp.Reset()
	assert.Equal(t, 0, pp.SampleCount())
	pp.ObserveColumn(l2binarize.ColumnStats{X: 2})
	assert.Equal(t, 1, pp.SampleCount())
}

func TestProfilePlotter_NoSamples(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	files, err := NewProfilePlotter("empty").GeneratePlots(fs, "plots")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, fs.Files("plots"))
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))
	colors := generateColors(4)
	require.Len(t, colors, 4)
	seen := map[[3]uint32]bool{}
	for _, c := range colors {
		r, g, b, _ := c.RGBA()
		seen[[3]uint32{r, g, b}] = true
	}
	assert.Len(t, seen, 4)

	r, g, b := hslToRGB(0, 0, 0.5)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}
