package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sheet.skeleton/internal/fsutil"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l6measures"
)

const layoutJSON = `{
  "systems": [{
    "id": 1, "left": 20, "top": 40, "width": 360, "height": 141,
    "parts": [{"id": 1, "staves": [
      {"id": 1, "left": 20, "top": 40, "width": 360, "height": 41},
      {"id": 2, "left": 20, "top": 140, "width": 360, "height": 41}
    ]}]
  }]
}`

func TestLoadLayout(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	fs.Put("layout.json", []byte(layoutJSON))

	layout, err := LoadLayout(fs, "layout.json")
	require.NoError(t, err)
	require.Len(t, layout.Systems, 1)
	staves := layout.Systems[0].Staves()
	require.Len(t, staves, 2)
	assert.Equal(t, 140, staves[1].Top)

	scale, err := EstimateScale(layout.Systems)
	require.NoError(t, err)
	assert.Equal(t, 10, scale.Interline)
}

func TestLoadLayout_Errors(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	fs.Put("bad.json", []byte(`{"systems": [`))
	fs.Put("empty.json", []byte(`{"systems": []}`))
	fs.Put("unordered.json", []byte(`{"systems": [{"id": 1, "width": 10, "height": 10, "parts": [{"id": 1, "staves": [
		{"id": 1, "top": 50, "width": 10, "height": 5},
		{"id": 2, "top": 10, "width": 10, "height": 5}]}]}]}`))

	for _, path := range []string{"missing.json", "bad.json", "empty.json", "unordered.json"} {
		_, err := LoadLayout(fs, path)
		assert.Error(t, err, path)
	}
}

func TestEstimateScale_NoStaves(t *testing.T) {
	_, err := EstimateScale([]*l6measures.System{{ID: 1}})
	assert.Error(t, err)
}
