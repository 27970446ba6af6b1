package l6measures

import (
	"fmt"
	"slices"
	"sort"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l4sticks"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l5bars"
)

// Assembler builds the measures of a system from its bar alignments.
type Assembler struct {
	cfg Config
}

// NewAssembler validates cfg and returns an Assembler.
func NewAssembler(cfg *Config) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assembler config: %w", err)
	}
	return &Assembler{cfg: *cfg}, nil
}

// Assemble replaces the measures of every part of sys. Each alignment gives
// one measure per part whose staves it crosses, closed by a bar line made
// of the part's sticks. A part left without measures gets one artificial
// measure spanning the whole system. The boundary passes then run in order:
// MergeBarlines, RemoveStartingMeasure and CheckEndingBar.
//
// aligns must have one slot per staff of sys, in the order of Staves.
func (a *Assembler) Assemble(sys *System, aligns []*l5bars.Alignment) error {
	nStaves := len(sys.Staves())
	for i, al := range aligns {
		if len(al.Slots) != nStaves {
			return fmt.Errorf("system %d: alignment %d has %d slots for %d staves", sys.ID, i, len(al.Slots), nStaves)
		}
	}
	a.allocate(sys, aligns)
	a.MergeBarlines(sys)
	a.RemoveStartingMeasure(sys)
	a.CheckEndingBar(sys)
	diagf("system %d: %d alignments, %d measures in first part", sys.ID, len(aligns), measureCount(sys))
	return nil
}

func (a *Assembler) allocate(sys *System, aligns []*l5bars.Alignment) {
	for _, p := range sys.Parts {
		p.Measures = nil
		p.StartingBarline = nil
	}
	for _, al := range aligns {
		first := 0
		for _, p := range sys.Parts {
			slots := al.Slots[first : first+len(p.Staves)]
			first += len(p.Staves)
			if p.Dummy() {
				continue
			}

			var sticks []*l4sticks.Stick
			for _, in := range slots {
				// A stick may cross several staves of the part.
				if in != nil && !slices.Contains(sticks, in.Stick) {
					sticks = append(sticks, in.Stick)
				}
			}
			if len(sticks) == 0 {
				opsf("system %d part %d: no intersection in %s, gap accepted", sys.ID, p.ID, al)
				continue
			}
			if len(sticks) < len(slots) {
				diagf("system %d part %d: %d of %d staves crossed by %s", sys.ID, p.ID, len(sticks), len(slots), al)
			}
			p.Measures = append(p.Measures, &Measure{Barline: &Barline{Sticks: sticks}})
		}
	}
	for _, p := range sys.Parts {
		sort.SliceStable(p.Measures, func(i, j int) bool {
			return p.Measures[i].Barline.Center() < p.Measures[j].Barline.Center()
		})
	}
	a.reanchor(sys)
}

// MergeBarlines sweeps the measures of each part. When a bar line lies
// within MaxDoubleBarDx of the previous kept one, its measure is dropped:
// if their first sticks overlap vertically the two bar lines form a double
// bar and are merged. Stacked segments whose first sticks are collinear
// (AreExtensions within MaxExtensionDx and MaxDeltaSlope) are pieces of one
// broken bar line and are merged too. Other stacked segments are dropped
// with a warning.
func (a *Assembler) MergeBarlines(sys *System) {
	for _, p := range sys.Parts {
		kept := make([]*Measure, 0, len(p.Measures))
		var prev *Measure
		for _, m := range p.Measures {
			if prev != nil && prev.Barline != nil && m.Barline != nil &&
				m.Barline.Center()-prev.Barline.Center() <= a.cfg.MaxDoubleBarDx {
				prevStick, nextStick := prev.Barline.Sticks[0], m.Barline.Sticks[0]
				switch {
				case yOverlap(nextStick, prevStick):
					prev.Barline.mergeWith(m.Barline)
					tracef("system %d part %d: merged close bar lines into %s", sys.ID, p.ID, prev.Barline)
				case l4sticks.AreExtensions(prevStick, nextStick, sys.Height, a.cfg.MaxExtensionDx, a.cfg.MaxDeltaSlope):
					prev.Barline.mergeWith(m.Barline)
					diagf("system %d part %d: joined broken bar line %s", sys.ID, p.ID, prev.Barline)
				default:
					opsf("system %d part %d: two bar line segments one above the other at x=%d", sys.ID, p.ID, m.Barline.Center())
				}
				continue
			}
			kept = append(kept, m)
			prev = m
		}
		p.Measures = kept
	}
	a.reanchor(sys)
}

// RemoveStartingMeasure turns the first bar line into the starting bar line
// of each part when it lies closer than MinMeasureWidth to the system's
// left edge. The system and its staves are shifted to that bar line and the
// first measure of each part is dropped. It does nothing once a starting
// bar line has been set.
func (a *Assembler) RemoveStartingMeasure(sys *System) {
	part := sys.FirstRealPart()
	if part == nil || part.StartingBarline != nil {
		return
	}
	first := part.FirstMeasure()
	if first == nil || first.Barline == nil {
		return
	}

	dx := first.Barline.LeftX() - sys.Left
	if dx >= a.cfg.MinMeasureWidth {
		return
	}
	if dx != 0 {
		tracef("system %d: adjusting left edge by %d", sys.ID, dx)
		sys.Left += dx
		sys.Width -= dx
	}
	for _, p := range sys.Parts {
		if p.Dummy() {
			continue
		}
		for _, st := range p.Staves {
			st.Left += dx
			st.Width -= dx
		}
		if m := p.FirstMeasure(); m != nil && m.Barline != nil {
			p.StartingBarline = m.Barline
			p.Measures = p.Measures[1:]
		}
	}
	a.reanchor(sys)
}

// CheckEndingBar trims the system and its staves at the last bar line when
// it lies closer than MinMeasureWidth to the right edge.
func (a *Assembler) CheckEndingBar(sys *System) {
	part := sys.FirstRealPart()
	if part == nil {
		return
	}
	last := part.LastMeasure()
	if last == nil || last.Barline == nil {
		return
	}

	lastX := last.Barline.RightX()
	if sys.Left+part.Staves[0].Width-lastX >= a.cfg.MinMeasureWidth {
		return
	}
	if w := lastX - sys.Left; w != sys.Width {
		tracef("system %d: adjusting width from %d to %d", sys.ID, sys.Width, w)
		sys.Width = w
	}
	for _, st := range sys.Staves() {
		st.Width = sys.Width
	}
	a.reanchor(sys)
}

// reanchor gives every part at least one measure, renumbers measures from 1
// and recomputes their abscissae relative to the system's left edge.
func (a *Assembler) reanchor(sys *System) {
	for _, p := range sys.Parts {
		if len(p.Measures) == 0 {
			tracef("system %d part %d: creating artificial measure", sys.ID, p.ID)
			p.Measures = []*Measure{{}}
		}
		left := 0
		for i, m := range p.Measures {
			m.ID = i + 1
			m.Left = left
			if m.Barline != nil {
				m.Right = m.Barline.Center() - sys.Left
			} else {
				m.Right = sys.Width
			}
			left = m.Right
		}
	}
}

// yOverlap reports whether two sticks share part of their vertical extent.
func yOverlap(one, two *l4sticks.Stick) bool {
	b1, b2 := one.Bounds(), two.Bounds()
	return max(b1.Min.Y, b2.Min.Y) < min(b1.Max.Y, b2.Max.Y)
}

func measureCount(sys *System) int {
	if p := sys.FirstRealPart(); p != nil {
		return len(p.Measures)
	}
	return 0
}
