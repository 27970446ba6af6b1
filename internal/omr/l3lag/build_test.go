package l3lag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l2binarize"
	"github.com/banshee-data/sheet.skeleton/internal/testutil"
)

func maskFromRows(t *testing.T, rows ...string) *l2binarize.Mask {
	t.Helper()
	m := l2binarize.NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x := range row {
			if row[x] == '#' {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

var plus = []string{
	"..#..",
	"..#..",
	"#####",
	"..#..",
	"..#..",
}

func sectionAt(t *testing.T, v *View, x, y int) *Section {
	t.Helper()
	s, ok := v.SectionAtPixel(x, y)
	require.True(t, ok, "no section at (%d,%d)", x, y)
	return s
}

func TestBuild_LengthRatioSplitsSections(t *testing.T) {
	lag, err := Build("hLag", maskFromRows(t, plus...), Horizontal, &Config{MaxLengthRatio: 2})
	require.NoError(t, err)

	lag.Read(func(v *View) {
		require.Equal(t, 3, v.Len())
		top := sectionAt(t, v, 2, 0)
		bar := sectionAt(t, v, 0, 2)
		bottom := sectionAt(t, v, 2, 4)

		assert.Equal(t, 2, top.RunCount())
		assert.Equal(t, 1, bar.RunCount())
		assert.Equal(t, 2, bottom.RunCount())

		assert.Equal(t, []Edge{{To: bar.ID, Weight: 1}}, top.Targets())
		assert.Equal(t, []Edge{{To: top.ID, Weight: 1}}, bar.Sources())
		assert.Equal(t, []Edge{{To: bottom.ID, Weight: 1}}, bar.Targets())

		assert.InDelta(t, 0.2, bar.FirstAdjacency(), 1e-9)
		assert.InDelta(t, 0.2, bar.LastAdjacency(), 1e-9)
		assert.InDelta(t, 1.0, top.LastAdjacency(), 1e-9)
		assert.InDelta(t, 0.0, top.FirstAdjacency(), 1e-9)
	})
}

func TestBuild_RatioDisabledKeepsOneSection(t *testing.T) {
	lag, err := Build("hLag", maskFromRows(t, plus...), Horizontal, &Config{})
	require.NoError(t, err)
	lag.Read(func(v *View) {
		require.Equal(t, 1, v.Len())
		assert.Equal(t, 5, v.Sections()[0].RunCount())
		assert.Equal(t, 9, v.Sections()[0].Weight())
	})
}

func TestBuild_VerticalOrientation(t *testing.T) {
	lag, err := Build("vLag", maskFromRows(t, plus...), Vertical, &Config{MaxLengthRatio: 2})
	require.NoError(t, err)
	lag.Read(func(v *View) {
		require.Equal(t, 3, v.Len())
		stem := sectionAt(t, v, 2, 0)
		assert.Equal(t, 2, stem.FirstPos)
		assert.Equal(t, Run{Start: 0, Length: 5}, stem.FirstRun())
		assert.Len(t, stem.Sources(), 1)
		assert.Len(t, stem.Targets(), 1)
	})
}

func TestBuild_JunctionOpensNewSection(t *testing.T) {
	m := maskFromRows(t,
		"#.#",
		"###",
		"#.#",
	)
	lag, err := Build("hLag", m, Horizontal, &Config{})
	require.NoError(t, err)
	lag.Read(func(v *View) {
		require.Equal(t, 5, v.Len(), "two arms above, the joining run, two arms below")
		join := sectionAt(t, v, 1, 1)
		assert.Equal(t, 1, join.RunCount())
		assert.Len(t, join.Sources(), 2)
		assert.Len(t, join.Targets(), 2)
		assert.InDelta(t, 2.0/3.0, join.FirstAdjacency(), 1e-9)
		assert.InDelta(t, 2.0/3.0, join.LastAdjacency(), 1e-9)

		left := sectionAt(t, v, 0, 2)
		assert.NotEqual(t, join.ID, left.ID)
		assert.Equal(t, []Edge{{To: join.ID, Weight: 1}}, left.Sources())
	})
}

func TestBuild_SoleOverlapContinuesSection(t *testing.T) {
	m := maskFromRows(t,
		"###",
		".#.",
		".##",
	)
	lag, err := Build("hLag", m, Horizontal, &Config{})
	require.NoError(t, err)
	lag.Read(func(v *View) {
		require.Equal(t, 1, v.Len())
		s := v.Sections()[0]
		assert.Equal(t, []Run{
			{Start: 0, Length: 3},
			{Start: 1, Length: 1},
			{Start: 1, Length: 2},
		}, s.Runs)
	})
}

func TestBuild_RoundTripReconstructsMask(t *testing.T) {
	r := testutil.NoisyRaster(42, 37, 29)
	mask, err := l2binarize.Binarize(r, &l2binarize.Config{HalfWindow: 4, KFactor: 0.2})
	require.NoError(t, err)
	require.NotZero(t, mask.Count())

	for _, o := range []Orientation{Horizontal, Vertical} {
		for _, ratio := range []float64{0, 2} {
			lag, err := Build("lag", mask, o, &Config{MaxLengthRatio: ratio})
			require.NoError(t, err)
			lag.Read(func(v *View) {
				require.NoError(t, v.Validate())
				assert.True(t, v.Foreground().Equal(mask), "%s lag with ratio %v lost or gained pixels", o, ratio)

				total := 0
				for _, s := range v.Sections() {
					total += s.Weight()
				}
				assert.Equal(t, mask.Count(), total)
			})
		}
	}
}

func TestBuild_VerticalFromLazyFilter(t *testing.T) {
	r := testutil.NoisyRaster(8, 25, 14)
	cfg := &l2binarize.Config{HalfWindow: 3, KFactor: 0.3}
	mask, err := l2binarize.Binarize(r, cfg)
	require.NoError(t, err)

	f, err := l2binarize.NewFilter(r, cfg)
	require.NoError(t, err)
	lag, err := Build("vLag", f, Vertical, &Config{MaxLengthRatio: 2})
	require.NoError(t, err)
	lag.Read(func(v *View) {
		assert.True(t, v.Foreground().Equal(mask))
	})

	// The filter has been drained; a second pass must move it backward.
	_, err = Build("vLag", f, Vertical, &Config{})
	assert.ErrorIs(t, err, l2binarize.ErrOrderingViolation)
}

func TestBuild_InvalidConfig(t *testing.T) {
	_, err := Build("hLag", l2binarize.NewMask(2, 2), Horizontal, &Config{MaxLengthRatio: 0.5})
	assert.Error(t, err)
}

func TestBuild_EmptyMask(t *testing.T) {
	lag, err := Build("hLag", l2binarize.NewMask(6, 4), Horizontal, &Config{})
	require.NoError(t, err)
	lag.Read(func(v *View) {
		assert.Zero(t, v.Len())
	})
}
