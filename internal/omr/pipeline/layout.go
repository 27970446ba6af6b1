package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/banshee-data/sheet.skeleton/internal/fsutil"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l6measures"
)

// Layout is the system layout of a sheet, as read from a layout file.
type Layout struct {
	Interline int                  `json:"interline,omitempty"`
	Systems   []*l6measures.System `json:"systems"`
}

// LoadLayout reads and validates a JSON layout file.
func LoadLayout(fs fsutil.FileSystem, path string) (*Layout, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	var layout Layout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse layout JSON: %w", err)
	}
	if len(layout.Systems) == 0 {
		return nil, fmt.Errorf("layout %s has no systems", path)
	}
	for _, sys := range layout.Systems {
		if err := sys.Validate(); err != nil {
			return nil, fmt.Errorf("layout %s: %w", path, err)
		}
	}
	return &layout, nil
}

// EstimateScale returns the interline implied by the staff heights of the
// layout: the median staff height divided by the four gaps of a five-line
// staff.
func EstimateScale(systems []*l6measures.System) (l1raster.Scale, error) {
	var heights []int
	for _, sys := range systems {
		for _, st := range sys.Staves() {
			heights = append(heights, st.Height)
		}
	}
	if len(heights) == 0 {
		return l1raster.Scale{}, fmt.Errorf("no staves to estimate the interline from")
	}
	sort.Ints(heights)
	return l1raster.NewScale((heights[len(heights)/2] - 1) / 4)
}
