package l3lag

import (
	"image"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

// SectionID identifies a section inside its lag. Ids start at 1 and are
// never reused; 0 means "no section".
type SectionID int

// Role tags how a section came to be.
type Role uint8

const (
	// RoleNormal sections come straight from the binarized raster.
	RoleNormal Role = iota
	// RoleBorder sections were thin fringes absorbed by a deleted stick.
	RoleBorder
	// RolePatch sections were synthesized to bridge a deleted stick.
	RolePatch
)

func (r Role) String() string {
	switch r {
	case RoleBorder:
		return "border"
	case RolePatch:
		return "patch"
	default:
		return "normal"
	}
}

// Edge links two sections on consecutive scan lines. Weight is the pixel
// overlap between the source's last run and the target's first run.
type Edge struct {
	To     SectionID
	Weight int
}

// Section is a chain of runs on consecutive scan lines, each overlapping
// the previous one.
//
// Sections handed out by a View must not be modified; all changes go
// through a Tx.
type Section struct {
	ID       SectionID
	FirstPos int
	Runs     []Run
	Role     Role
	Stick    int // owning stick id, 0 when free

	sources []Edge // sections ending on FirstPos-1
	targets []Edge // sections starting on LastPos+1
	dead    bool
}

// LastPos returns the position of the last run.
func (s *Section) LastPos() int { return s.FirstPos + len(s.Runs) - 1 }

// RunCount returns the number of runs.
func (s *Section) RunCount() int { return len(s.Runs) }

// FirstRun returns the run at FirstPos.
func (s *Section) FirstRun() Run { return s.Runs[0] }

// LastRun returns the run at LastPos.
func (s *Section) LastRun() Run { return s.Runs[len(s.Runs)-1] }

// RunAt returns the run at position pos, if the section spans it.
func (s *Section) RunAt(pos int) (Run, bool) {
	i := pos - s.FirstPos
	if i < 0 || i >= len(s.Runs) {
		return Run{}, false
	}
	return s.Runs[i], true
}

// Dead reports whether the section has been deleted.
func (s *Section) Dead() bool { return s.dead }

// Sources returns a copy of the incoming edges.
func (s *Section) Sources() []Edge { return append([]Edge(nil), s.sources...) }

// Targets returns a copy of the outgoing edges.
func (s *Section) Targets() []Edge { return append([]Edge(nil), s.targets...) }

// Weight returns the number of pixels in the section.
func (s *Section) Weight() int {
	n := 0
	for _, r := range s.Runs {
		n += r.Length
	}
	return n
}

// MeanLength returns the average run length.
func (s *Section) MeanLength() float64 {
	if len(s.Runs) == 0 {
		return 0
	}
	return float64(s.Weight()) / float64(len(s.Runs))
}

// CoordRange returns the smallest and largest coordinates covered by any run.
func (s *Section) CoordRange() (lo, hi int) {
	lo, hi = s.Runs[0].Start, s.Runs[0].Stop()
	for _, r := range s.Runs[1:] {
		lo = min(lo, r.Start)
		hi = max(hi, r.Stop())
	}
	return lo, hi
}

// FirstAdjacency is the share of the first run touched by source sections.
func (s *Section) FirstAdjacency() float64 {
	return adjacency(s.sources, s.FirstRun().Length)
}

// LastAdjacency is the share of the last run touched by target sections.
func (s *Section) LastAdjacency() float64 {
	return adjacency(s.targets, s.LastRun().Length)
}

func adjacency(edges []Edge, length int) float64 {
	if length == 0 {
		return 0
	}
	n := 0
	for _, e := range edges {
		n += e.Weight
	}
	return float64(n) / float64(length)
}

// Bounds returns the absolute bounding box of the section.
func (s *Section) Bounds(o Orientation) image.Rectangle {
	lo, hi := s.CoordRange()
	x0, y0 := o.Absolute(s.FirstPos, lo)
	x1, y1 := o.Absolute(s.LastPos(), hi)
	return image.Rect(x0, y0, x1+1, y1+1)
}

// Contains reports whether the absolute pixel (x, y) belongs to a run.
func (s *Section) Contains(o Orientation, x, y int) bool {
	pos, coord := o.Oriented(x, y)
	r, ok := s.RunAt(pos)
	return ok && coord >= r.Start && coord <= r.Stop()
}

// Write paints every run of the section into w at the given level.
func (s *Section) Write(w l1raster.Writable, o Orientation, level uint8) {
	for i, r := range s.Runs {
		pos := s.FirstPos + i
		for c := r.Start; c <= r.Stop(); c++ {
			x, y := o.Absolute(pos, c)
			w.SetPixel(x, y, level)
		}
	}
}

// WriteLevels paints every run at its own Level.
func (s *Section) WriteLevels(w l1raster.Writable, o Orientation) {
	for i, r := range s.Runs {
		pos := s.FirstPos + i
		for c := r.Start; c <= r.Stop(); c++ {
			x, y := o.Absolute(pos, c)
			w.SetPixel(x, y, r.Level)
		}
	}
}

func removeEdge(edges []Edge, id SectionID) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.To != id {
			out = append(out, e)
		}
	}
	return out
}
