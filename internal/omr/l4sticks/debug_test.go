package l4sticks

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
	"github.com/banshee-data/sheet.skeleton/internal/testutil"
)

func TestSetLogWriters_Disable(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, &buf, &buf)
	SetLogWriters(nil, nil, nil)

	if opsLogger != nil || diagLogger != nil || traceLogger != nil {
		t.Fatal("all loggers should be nil after SetLogWriters(nil, nil, nil)")
	}
	opsf("dropped %d", 1)
	diagf("dropped %d", 2)
	tracef("dropped %d", 3)
}

func TestCleanupIsLoggedOnDiag(t *testing.T) {
	var ops, diag bytes.Buffer
	SetLogWriters(&ops, &diag, nil)
	defer SetLogWriters(nil, nil, nil)

	g := testutil.RasterFromRows(t,
		"..#..",
		"#####",
		"..#..",
	)
	lag := buildLag(t, g, l3lag.Horizontal)
	nest := NewNest(lag)
	st, err := nest.Add([]l3lag.SectionID{sectionID(t, lag, 0, 1)})
	require.NoError(t, err)
	rec, err := NewReconciler(nest, g, testConfig())
	require.NoError(t, err)
	_, err = rec.Cleanup(st)
	require.NoError(t, err)

	out := diag.String()
	if !strings.Contains(out, "[l4sticks]") || !strings.Contains(out, "cleaned") {
		t.Errorf("diag stream = %q, want a cleanup summary", out)
	}
	require.Equal(t, uint8(l1raster.Background), g.Pixel(0, 1))
}
