package l6measures

import (
	"bytes"
	"encoding/json"
	"image"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l4sticks"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l5bars"
)

// vbar returns a one pixel wide bar stick at x covering rows top..bottom.
func vbar(id, x, top, bottom int) *l4sticks.Stick {
	return l4sticks.NewVirtualStick(id, l3lag.Vertical, image.Rect(x, top, x+1, bottom+1))
}

// singlePartSystem lays out one part with one staff of height 40 every 100
// rows.
func singlePartSystem(width, staves int) *System {
	part := &Part{ID: 1}
	for i := 0; i < staves; i++ {
		part.Staves = append(part.Staves, &Staff{ID: i + 1, Top: 100 * i, Width: width, Height: 40})
	}
	return &System{ID: 1, Width: width, Height: 100*(staves-1) + 40, Parts: []*Part{part}}
}

// crossing returns the bar sticks at xs for every staff of sys, one list
// per staff.
func crossing(sys *System, xs ...[]int) []l5bars.StaffCandidates {
	var out []l5bars.StaffCandidates
	id := 0
	for i, st := range sys.Staves() {
		sc := l5bars.StaffCandidates{StaffID: i, MidY: st.MidY()}
		for _, x := range xs[i] {
			id++
			sc.Sticks = append(sc.Sticks, vbar(100*i+id, x, st.Top, st.Top+st.Height-1))
		}
		out = append(out, sc)
	}
	return out
}

func align(t *testing.T, dx float64, staves []l5bars.StaffCandidates) []*l5bars.Alignment {
	t.Helper()
	a, err := l5bars.NewAligner(&l5bars.Config{MaxAlignShiftDx: dx})
	require.NoError(t, err)
	aligns, err := a.Align(staves)
	require.NoError(t, err)
	return aligns
}

func newAssembler(t *testing.T, doubleDx, minWidth int) *Assembler {
	t.Helper()
	a, err := NewAssembler(&Config{MaxDoubleBarDx: doubleDx, MinMeasureWidth: minWidth})
	require.NoError(t, err)
	return a
}

type span struct{ ID, Left, Right, Sticks int }

func spans(p *Part) []span {
	var out []span
	for _, m := range p.Measures {
		s := span{ID: m.ID, Left: m.Left, Right: m.Right}
		if m.Barline != nil {
			s.Sticks = len(m.Barline.Sticks)
		}
		out = append(out, s)
	}
	return out
}

type geometry struct {
	Left, Width int
	Staves      [][2]int
	Measures    []span
}

func geometryOf(sys *System) geometry {
	g := geometry{Left: sys.Left, Width: sys.Width, Measures: spans(sys.Parts[0])}
	for _, st := range sys.Staves() {
		g.Staves = append(g.Staves, [2]int{st.Left, st.Width})
	}
	return g
}

func TestAssemble_TwoStaffSystemWithEdgeBars(t *testing.T) {
	sys := singlePartSystem(410, 2)
	aligns := align(t, 2, crossing(sys, []int{10, 62, 400}, []int{10, 63, 400}))
	require.Len(t, aligns, 3)

	require.NoError(t, newAssembler(t, 3, 20).Assemble(sys, aligns))

	part := sys.Parts[0]
	require.NotNil(t, part.StartingBarline)
	assert.Len(t, part.StartingBarline.Sticks, 2)
	assert.Equal(t, 10, part.StartingBarline.Center())

	// The starting bar moves the left edge to 10 and the ending bar trims
	// the width to 390. The bar at 62/63 stays a measure boundary.
	assert.Equal(t, 10, sys.Left)
	assert.Equal(t, 390, sys.Width)
	want := []span{{1, 0, 52, 2}, {2, 52, 390, 2}}
	if diff := cmp.Diff(want, spans(part)); diff != "" {
		t.Errorf("measures mismatch (-want +got):\n%s", diff)
	}
	for _, st := range sys.Staves() {
		assert.Equal(t, 10, st.Left)
		assert.Equal(t, 390, st.Width)
	}
}

func TestAssemble_DoubleBarIsMerged(t *testing.T) {
	sys := singlePartSystem(200, 1)
	aligns := align(t, 1, crossing(sys, []int{50, 52}))
	require.Len(t, aligns, 2)

	require.NoError(t, newAssembler(t, 3, 20).Assemble(sys, aligns))

	part := sys.Parts[0]
	require.Len(t, part.Measures, 1)
	bl := part.Measures[0].Barline
	require.NotNil(t, bl)
	require.Len(t, bl.Sticks, 2)
	assert.Same(t, aligns[0].Slots[0].Stick, bl.Sticks[0])
	assert.Same(t, aligns[1].Slots[0].Stick, bl.Sticks[1])
	assert.Equal(t, 51, bl.Center())
	assert.Nil(t, part.StartingBarline)
	assert.Equal(t, 0, sys.Left)
	assert.Equal(t, 200, sys.Width)
	assert.Equal(t, []span{{1, 0, 51, 2}}, spans(part))
}

func TestMergeBarlines_StackedSegmentsAreDropped(t *testing.T) {
	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	upper := vbar(1, 50, 0, 15)
	lower := vbar(2, 52, 20, 39)
	sys := singlePartSystem(200, 1)
	sys.Parts[0].Measures = []*Measure{
		{Barline: &Barline{Sticks: []*l4sticks.Stick{upper}}},
		{Barline: &Barline{Sticks: []*l4sticks.Stick{lower}}},
	}

	newAssembler(t, 3, 20).MergeBarlines(sys)

	part := sys.Parts[0]
	require.Len(t, part.Measures, 1)
	assert.Equal(t, []*l4sticks.Stick{upper}, part.Measures[0].Barline.Sticks)
	assert.Contains(t, ops.String(), "one above the other")
}

func TestMergeBarlines_BrokenBarIsJoined(t *testing.T) {
	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	upper := vbar(1, 50, 0, 15)
	lower := vbar(2, 51, 20, 39)
	sys := singlePartSystem(200, 1)
	sys.Parts[0].Measures = []*Measure{
		{Barline: &Barline{Sticks: []*l4sticks.Stick{upper}}},
		{Barline: &Barline{Sticks: []*l4sticks.Stick{lower}}},
	}

	a, err := NewAssembler(&Config{MaxDoubleBarDx: 3, MaxExtensionDx: 2, MaxDeltaSlope: 0.1, MinMeasureWidth: 20})
	require.NoError(t, err)
	a.MergeBarlines(sys)

	part := sys.Parts[0]
	require.Len(t, part.Measures, 1)
	assert.Equal(t, []*l4sticks.Stick{upper, lower}, part.Measures[0].Barline.Sticks)
	assert.NotContains(t, ops.String(), "one above the other")
}

func TestMergeBarlines_FarBarsAreKept(t *testing.T) {
	sys := singlePartSystem(200, 1)
	sys.Parts[0].Measures = []*Measure{
		{Barline: &Barline{Sticks: []*l4sticks.Stick{vbar(1, 50, 0, 39)}}},
		{Barline: &Barline{Sticks: []*l4sticks.Stick{vbar(2, 54, 0, 39)}}},
	}
	a := newAssembler(t, 3, 20)
	a.MergeBarlines(sys)
	assert.Equal(t, []span{{1, 0, 50, 1}, {2, 50, 54, 1}}, spans(sys.Parts[0]))

	a.MergeBarlines(sys)
	assert.Equal(t, []span{{1, 0, 50, 1}, {2, 50, 54, 1}}, spans(sys.Parts[0]))
}

func TestRemoveStartingMeasure_Idempotent(t *testing.T) {
	sys := singlePartSystem(410, 1)
	aligns := align(t, 2, crossing(sys, []int{10, 25, 200}))
	a := newAssembler(t, 3, 20)
	a.allocate(sys, aligns)

	a.RemoveStartingMeasure(sys)
	once := geometryOf(sys)
	assert.Equal(t, 10, once.Left)
	assert.Equal(t, 400, once.Width)
	assert.Equal(t, []span{{1, 0, 15, 1}, {2, 15, 190, 1}}, once.Measures)

	// The bar at 25 is now 15 pixels from the edge, but the starting bar
	// line is already set.
	a.RemoveStartingMeasure(sys)
	if diff := cmp.Diff(once, geometryOf(sys)); diff != "" {
		t.Errorf("second pass changed the system (-once +twice):\n%s", diff)
	}
}

func TestRemoveStartingMeasure_BarAtEdgeNeedsNoShift(t *testing.T) {
	sys := singlePartSystem(300, 1)
	a := newAssembler(t, 3, 20)
	a.allocate(sys, align(t, 2, crossing(sys, []int{0, 150})))

	a.RemoveStartingMeasure(sys)
	assert.Equal(t, 0, sys.Left)
	assert.Equal(t, 300, sys.Width)
	require.NotNil(t, sys.Parts[0].StartingBarline)
	assert.Equal(t, []span{{1, 0, 150, 1}}, spans(sys.Parts[0]))
}

func TestRemoveStartingMeasure_WideFirstMeasureIsKept(t *testing.T) {
	sys := singlePartSystem(300, 1)
	a := newAssembler(t, 3, 20)
	a.allocate(sys, align(t, 2, crossing(sys, []int{40, 150})))

	a.RemoveStartingMeasure(sys)
	assert.Nil(t, sys.Parts[0].StartingBarline)
	assert.Equal(t, []span{{1, 0, 40, 1}, {2, 40, 150, 1}}, spans(sys.Parts[0]))
}

func TestCheckEndingBar_Idempotent(t *testing.T) {
	sys := singlePartSystem(300, 1)
	a := newAssembler(t, 3, 20)
	a.allocate(sys, align(t, 2, crossing(sys, []int{150, 290})))

	a.CheckEndingBar(sys)
	once := geometryOf(sys)
	assert.Equal(t, 290, once.Width)
	assert.Equal(t, [][2]int{{0, 290}}, once.Staves)

	a.CheckEndingBar(sys)
	if diff := cmp.Diff(once, geometryOf(sys)); diff != "" {
		t.Errorf("second pass changed the system (-once +twice):\n%s", diff)
	}
}

func TestAssemble_Twice(t *testing.T) {
	sys := singlePartSystem(410, 2)
	aligns := align(t, 2, crossing(sys, []int{10, 62, 400}, []int{10, 63, 400}))
	a := newAssembler(t, 3, 20)

	require.NoError(t, a.Assemble(sys, aligns))
	once := geometryOf(sys)
	require.NoError(t, a.Assemble(sys, aligns))
	if diff := cmp.Diff(once, geometryOf(sys)); diff != "" {
		t.Errorf("second assembly changed the system (-once +twice):\n%s", diff)
	}
}

func TestAssemble_EmptyPartGetsArtificialMeasure(t *testing.T) {
	sys := singlePartSystem(410, 1)
	require.NoError(t, newAssembler(t, 3, 20).Assemble(sys, nil))

	part := sys.Parts[0]
	require.Len(t, part.Measures, 1)
	m := part.Measures[0]
	assert.True(t, m.Artificial())
	assert.Equal(t, 1, m.ID)
	assert.Equal(t, 0, m.Left)
	assert.Equal(t, 410, m.Right)
}

func TestAssemble_OnlyStartingBar(t *testing.T) {
	sys := singlePartSystem(410, 1)
	require.NoError(t, newAssembler(t, 3, 20).Assemble(sys, align(t, 2, crossing(sys, []int{10}))))

	part := sys.Parts[0]
	require.NotNil(t, part.StartingBarline)
	require.Len(t, part.Measures, 1)
	assert.True(t, part.Measures[0].Artificial())
	assert.Equal(t, 400, part.Measures[0].Right)
}

func TestAssemble_PartWithoutIntersectionsAcceptsGap(t *testing.T) {
	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	defer SetLogWriters(nil, nil, nil)

	sys := &System{ID: 2, Width: 300, Height: 140, Parts: []*Part{
		{ID: 1, Staves: []*Staff{{ID: 1, Top: 0, Width: 300, Height: 40}}},
		{ID: 2, Staves: []*Staff{{ID: 2, Top: 100, Width: 300, Height: 40}}},
		{ID: 3},
	}}
	aligns := align(t, 2, crossing(sys, []int{100, 200}, []int{200}))
	require.NoError(t, newAssembler(t, 3, 20).Assemble(sys, aligns))

	assert.Equal(t, []span{{1, 0, 100, 1}, {2, 100, 200, 1}}, spans(sys.Parts[0]))
	assert.Equal(t, []span{{1, 0, 200, 1}}, spans(sys.Parts[1]))
	require.Len(t, sys.Parts[2].Measures, 1)
	assert.True(t, sys.Parts[2].Measures[0].Artificial())
	assert.True(t, strings.Contains(ops.String(), "gap accepted"), "ops stream = %q", ops.String())
}

func TestAssemble_SlotCountMismatch(t *testing.T) {
	sys := singlePartSystem(410, 2)
	aligns := []*l5bars.Alignment{{Slots: []*l5bars.Intersection{nil}}}
	assert.Error(t, newAssembler(t, 3, 20).Assemble(sys, aligns))
}

func TestMeasuresAreOrdered(t *testing.T) {
	sys := singlePartSystem(500, 1)
	require.NoError(t, newAssembler(t, 3, 20).Assemble(sys, align(t, 2, crossing(sys, []int{300, 100, 420, 200}))))
	prev := 0
	for _, m := range sys.Parts[0].Measures {
		assert.Equal(t, prev, m.Left)
		assert.Greater(t, m.Right, m.Left)
		prev = m.Right
	}
}

func TestSystemJSON(t *testing.T) {
	sys := singlePartSystem(200, 1)
	require.NoError(t, newAssembler(t, 3, 20).Assemble(sys, align(t, 1, crossing(sys, []int{50, 52}))))

	data, err := json.Marshal(sys)
	require.NoError(t, err)
	var got struct {
		Parts []struct {
			Measures []struct {
				Right   int `json:"right"`
				Barline struct {
					Center int   `json:"center"`
					Sticks []int `json:"sticks"`
				} `json:"barline"`
			} `json:"measures"`
		} `json:"parts"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Parts, 1)
	require.Len(t, got.Parts[0].Measures, 1)
	m := got.Parts[0].Measures[0]
	assert.Equal(t, 51, m.Right)
	assert.Equal(t, 51, m.Barline.Center)
	assert.Len(t, m.Barline.Sticks, 2)
}

func TestSystemValidate(t *testing.T) {
	assert.NoError(t, singlePartSystem(100, 2).Validate())

	bad := singlePartSystem(100, 2)
	bad.Parts[0].Staves[1].Top = 0
	assert.Error(t, bad.Validate())

	assert.Error(t, (&System{ID: 1, Width: 10, Height: 10}).Validate())
	assert.Error(t, (&System{ID: 1, Parts: []*Part{{ID: 1}}}).Validate())
}

func TestAssemble_StickSpanningStavesCountsOnce(t *testing.T) {
	sys := singlePartSystem(300, 2)
	tall := vbar(1, 150, 0, 139)
	staves := sys.Staves()
	aligns := align(t, 2, []l5bars.StaffCandidates{
		{StaffID: 0, MidY: staves[0].MidY(), Sticks: []*l4sticks.Stick{tall}},
		{StaffID: 1, MidY: staves[1].MidY(), Sticks: []*l4sticks.Stick{tall}},
	})
	require.Len(t, aligns, 1)

	require.NoError(t, newAssembler(t, 3, 20).Assemble(sys, aligns))
	m := sys.Parts[0].FirstMeasure()
	require.NotNil(t, m.Barline)
	assert.Len(t, m.Barline.Sticks, 1)
}
