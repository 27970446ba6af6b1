package l6measures

import (
	"encoding/json"
	"fmt"
	"image"
	"math"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l4sticks"
)

// System is a horizontal band of staves read together. Left, Top, Width and
// Height are absolute pixel coordinates.
type System struct {
	ID     int     `json:"id"`
	Left   int     `json:"left"`
	Top    int     `json:"top"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Parts  []*Part `json:"parts"`
}

// Part is the group of staves played by one instrument within a system.
type Part struct {
	ID              int        `json:"id"`
	Staves          []*Staff   `json:"staves"`
	Measures        []*Measure `json:"measures,omitempty"`
	StartingBarline *Barline   `json:"starting_barline,omitempty"`
}

// Staff is one five-line staff, in absolute pixel coordinates.
type Staff struct {
	ID     int `json:"id"`
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MidY returns the ordinate of the staff's middle line.
func (s *Staff) MidY() float64 { return float64(s.Top) + float64(s.Height-1)/2 }

// Measure is the span of a part between two bar lines. Left and Right are
// abscissae relative to the system's left edge. Barline closes the measure
// on its right and is nil for an artificial measure.
type Measure struct {
	ID      int      `json:"id"`
	Left    int      `json:"left"`
	Right   int      `json:"right"`
	Barline *Barline `json:"barline,omitempty"`
}

// Artificial reports whether the measure was created without a bar line.
func (m *Measure) Artificial() bool { return m.Barline == nil }

// Barline is the set of bar sticks that close a measure in one part.
type Barline struct {
	Sticks []*l4sticks.Stick
}

// Box returns the union of the sticks' contour boxes.
func (b *Barline) Box() image.Rectangle {
	var r image.Rectangle
	for i, st := range b.Sticks {
		if i == 0 {
			r = st.Bounds()
			continue
		}
		r = r.Union(st.Bounds())
	}
	return r
}

// LeftX returns the leftmost abscissa covered by the sticks.
func (b *Barline) LeftX() int { return b.Box().Min.X }

// RightX returns the rightmost abscissa covered by the sticks.
func (b *Barline) RightX() int { return b.Box().Max.X - 1 }

// Center returns the abscissa halfway between LeftX and RightX.
func (b *Barline) Center() int { return (b.LeftX() + b.RightX()) / 2 }

// mergeWith moves the sticks of o into b.
func (b *Barline) mergeWith(o *Barline) {
	b.Sticks = append(b.Sticks, o.Sticks...)
	o.Sticks = nil
}

func (b *Barline) String() string {
	return fmt.Sprintf("Barline{x=%d..%d sticks=%d}", b.LeftX(), b.RightX(), len(b.Sticks))
}

// MarshalJSON writes the bar line's extent and stick ids.
func (b *Barline) MarshalJSON() ([]byte, error) {
	ids := make([]int, len(b.Sticks))
	for i, st := range b.Sticks {
		ids[i] = st.ID
	}
	return json.Marshal(struct {
		Left   int   `json:"left"`
		Right  int   `json:"right"`
		Center int   `json:"center"`
		Sticks []int `json:"sticks"`
	}{b.LeftX(), b.RightX(), b.Center(), ids})
}

// Dummy reports whether the part has no staff of its own.
func (p *Part) Dummy() bool { return len(p.Staves) == 0 }

// FirstMeasure returns the leftmost measure, nil if there is none.
func (p *Part) FirstMeasure() *Measure {
	if len(p.Measures) == 0 {
		return nil
	}
	return p.Measures[0]
}

// LastMeasure returns the rightmost measure, nil if there is none.
func (p *Part) LastMeasure() *Measure {
	if len(p.Measures) == 0 {
		return nil
	}
	return p.Measures[len(p.Measures)-1]
}

// Staves returns every staff of the system, top to bottom across parts.
func (s *System) Staves() []*Staff {
	var out []*Staff
	for _, p := range s.Parts {
		out = append(out, p.Staves...)
	}
	return out
}

// FirstRealPart returns the first part that has staves.
func (s *System) FirstRealPart() *Part {
	for _, p := range s.Parts {
		if !p.Dummy() {
			return p
		}
	}
	return nil
}

// Validate checks the layout of the system before measures are built.
func (s *System) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("system %d has empty box %dx%d", s.ID, s.Width, s.Height)
	}
	if len(s.Parts) == 0 {
		return fmt.Errorf("system %d has no parts", s.ID)
	}
	prevTop := math.MinInt
	for _, st := range s.Staves() {
		if st.Width <= 0 || st.Height <= 0 {
			return fmt.Errorf("system %d staff %d has empty box %dx%d", s.ID, st.ID, st.Width, st.Height)
		}
		if st.Top <= prevTop {
			return fmt.Errorf("system %d staff %d is not below the previous staff", s.ID, st.ID)
		}
		prevTop = st.Top
	}
	return nil
}
