package l5bars

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l4sticks"
)

// Intersection is a bar candidate crossing one staff.
type Intersection struct {
	StaffID int     // staff the stick crosses
	X       float64 // abscissa of the stick's axis at the staff's middle line
	Stick   *l4sticks.Stick
}

// Alignment groups the intersections of one bar line across the staves of
// a system. Slots has one entry per staff, top to bottom, nil where the
// staff has no bar at that place.
type Alignment struct {
	Slots []*Intersection
}

// X returns the mean abscissa of the filled slots.
func (a *Alignment) X() float64 {
	var sum float64
	n := 0
	for _, in := range a.Slots {
		if in != nil {
			sum += in.X
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// LastX returns the abscissa of the lowest filled slot.
func (a *Alignment) LastX() (float64, bool) {
	for i := len(a.Slots) - 1; i >= 0; i-- {
		if a.Slots[i] != nil {
			return a.Slots[i].X, true
		}
	}
	return 0, false
}

// Filled returns the number of non-nil slots.
func (a *Alignment) Filled() int {
	n := 0
	for _, in := range a.Slots {
		if in != nil {
			n++
		}
	}
	return n
}

// Complete reports whether every staff has an intersection.
func (a *Alignment) Complete() bool { return a.Filled() == len(a.Slots) }

func (a *Alignment) String() string {
	var b strings.Builder
	b.WriteString("Alignment{")
	for i, in := range a.Slots {
		if i > 0 {
			b.WriteByte(' ')
		}
		if in == nil {
			b.WriteString("-")
			continue
		}
		fmt.Fprintf(&b, "%.1f", in.X)
	}
	b.WriteByte('}')
	return b.String()
}

// StaffCandidates lists the bar candidates crossing one staff of a system.
type StaffCandidates struct {
	StaffID int     // order of the staff in the system, top to bottom
	MidY    float64 // ordinate of the staff's middle line
	Sticks  []*l4sticks.Stick
}

// Aligner groups bar candidates into alignments.
type Aligner struct {
	cfg Config
}

// NewAligner validates cfg and returns an Aligner.
func NewAligner(cfg *Config) (*Aligner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aligner config: %w", err)
	}
	return &Aligner{cfg: *cfg}, nil
}

// Align processes the staves top to bottom. Each staff's intersections are
// matched with the open alignments whose latest filled abscissa lies within
// MaxAlignShiftDx. Matching is greedy on the smallest shift; ties go to the
// leftmost alignment, then to the leftmost intersection. An intersection
// left unmatched opens a new alignment, an alignment left unmatched gets a
// nil slot for the staff. The result is ordered by mean abscissa.
func (a *Aligner) Align(staves []StaffCandidates) ([]*Alignment, error) {
	ordered := append([]StaffCandidates(nil), staves...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StaffID < ordered[j].StaffID })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].StaffID == ordered[i-1].StaffID {
			return nil, fmt.Errorf("staff %d listed twice", ordered[i].StaffID)
		}
	}

	var aligns []*Alignment
	for i, sc := range ordered {
		inters := make([]*Intersection, 0, len(sc.Sticks))
		for _, st := range sc.Sticks {
			inters = append(inters, &Intersection{StaffID: sc.StaffID, X: st.PosAt(sc.MidY), Stick: st})
		}
		sort.SliceStable(inters, func(p, q int) bool { return inters[p].X < inters[q].X })

		matched := a.match(aligns, inters)
		for _, al := range aligns {
			al.Slots = append(al.Slots, nil)
		}
		for j, ai := range matched {
			if ai >= 0 {
				aligns[ai].Slots[i] = inters[j]
				continue
			}
			al := &Alignment{Slots: make([]*Intersection, i+1)}
			al.Slots[i] = inters[j]
			aligns = append(aligns, al)
			tracef("staff %d: new alignment at x=%.1f", sc.StaffID, inters[j].X)
		}
	}

	sort.SliceStable(aligns, func(i, j int) bool { return aligns[i].X() < aligns[j].X() })
	partial := 0
	for _, al := range aligns {
		if !al.Complete() {
			partial++
			diagf("incomplete %s", al)
		}
	}
	diagf("%d staves, %d alignments, %d incomplete", len(ordered), len(aligns), partial)
	return aligns, nil
}

type pairing struct {
	align, inter   int
	dx             float64
	alignX, interX float64
}

// match returns, per intersection, the index of its alignment or -1.
func (a *Aligner) match(aligns []*Alignment, inters []*Intersection) []int {
	var pairs []pairing
	for ai, al := range aligns {
		last, ok := al.LastX()
		if !ok {
			continue
		}
		for ij, in := range inters {
			dx := math.Abs(in.X - last)
			if dx <= a.cfg.MaxAlignShiftDx {
				pairs = append(pairs, pairing{align: ai, inter: ij, dx: dx, alignX: last, interX: in.X})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		p, q := pairs[i], pairs[j]
		if p.dx != q.dx {
			return p.dx < q.dx
		}
		if p.alignX != q.alignX {
			return p.alignX < q.alignX
		}
		return p.interX < q.interX
	})

	out := make([]int, len(inters))
	for i := range out {
		out[i] = -1
	}
	used := make([]bool, len(aligns))
	for _, p := range pairs {
		if used[p.align] || out[p.inter] >= 0 {
			continue
		}
		used[p.align] = true
		out[p.inter] = p.align
		tracef("x=%.1f joins alignment at x=%.1f, dx=%.2f", p.interX, p.alignX, p.dx)
	}
	return out
}
