package l4sticks

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
)

// ErrDisconnectedStick is returned when the proposed members of a stick do
// not form one connected component of the lag.
var ErrDisconnectedStick = errors.New("stick members are not connected")

// State is the lifecycle state of a stick.
type State uint8

const (
	// Transient sticks are proposals not yet accepted or rejected.
	Transient State = iota
	// Registered sticks were accepted by classification.
	Registered
	// Virtual sticks were synthesized rather than read from pixels.
	Virtual
	// Deleted sticks were rejected and reconciled away.
	Deleted
)

func (s State) String() string {
	switch s {
	case Transient:
		return "transient"
	case Registered:
		return "registered"
	case Virtual:
		return "virtual"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Stick is a connected set of sections with a fitted main axis. The axis
// gives the position across scan lines as a function of the coordinate
// along them: for a bar line in a vertical lag that is x as a function of
// y, for a staff line in a horizontal lag y as a function of x.
type Stick struct {
	ID          int
	Orientation l3lag.Orientation
	Members     []l3lag.SectionID
	Line        *Line
	State       State

	bounds image.Rectangle
	weight int
}

// Bounds returns the absolute contour box of the member sections at
// creation time.
func (s *Stick) Bounds() image.Rectangle { return s.bounds }

// Weight returns the number of pixels at creation time.
func (s *Stick) Weight() int { return s.weight }

// PosAt returns the axis position at the given coordinate.
func (s *Stick) PosAt(coord float64) float64 { return s.Line.At(coord) }

// Length returns the extent of the stick along its runs' coordinate.
func (s *Stick) Length() int {
	if s.Orientation == l3lag.Vertical {
		return s.bounds.Dy()
	}
	return s.bounds.Dx()
}

// Start returns the first coordinate covered by the stick.
func (s *Stick) Start() int {
	if s.Orientation == l3lag.Vertical {
		return s.bounds.Min.Y
	}
	return s.bounds.Min.X
}

// Stop returns the last coordinate covered by the stick.
func (s *Stick) Stop() int {
	if s.Orientation == l3lag.Vertical {
		return s.bounds.Max.Y - 1
	}
	return s.bounds.Max.X - 1
}

// AreExtensions reports whether a and b are two pieces of one straight
// stick: same orientation, ends at most maxDeltaCoord apart, both axes
// within maxDeltaPos of each other at the junction and slopes within
// maxDeltaSlope.
func AreExtensions(a, b *Stick, maxDeltaCoord, maxDeltaPos int, maxDeltaSlope float64) bool {
	if a.Orientation != b.Orientation {
		return false
	}
	if a.Start() > b.Start() {
		a, b = b, a
	}
	gap := b.Start() - a.Stop()
	if gap > maxDeltaCoord || gap < -maxDeltaCoord {
		return false
	}
	junction := float64(a.Stop()+b.Start()) / 2
	if math.Abs(a.PosAt(junction)-b.PosAt(junction)) > float64(maxDeltaPos) {
		return false
	}
	return math.Abs(a.Line.Slope()-b.Line.Slope()) <= maxDeltaSlope
}

// Thickness returns the mean number of pixels per coordinate along the axis.
func (s *Stick) Thickness() float64 {
	if n := s.Length(); n > 0 {
		return float64(s.weight) / float64(n)
	}
	return 0
}

// HasMember reports whether id is one of the stick's sections.
func (s *Stick) HasMember(id l3lag.SectionID) bool {
	for _, m := range s.Members {
		if m == id {
			return true
		}
	}
	return false
}

// NewVirtualStick returns a straight stick filling bounds that is not
// backed by lag sections, e.g. a bar line inferred from neighbouring staves.
func NewVirtualStick(id int, o l3lag.Orientation, bounds image.Rectangle) *Stick {
	st := &Stick{
		ID:          id,
		Orientation: o,
		Line:        &Line{},
		State:       Virtual,
		bounds:      bounds,
		weight:      bounds.Dx() * bounds.Dy(),
	}
	if o == l3lag.Vertical {
		x := float64(bounds.Min.X+bounds.Max.X-1) / 2
		st.Line.Include(float64(bounds.Min.Y), x).Include(float64(bounds.Max.Y-1), x)
	} else {
		y := float64(bounds.Min.Y+bounds.Max.Y-1) / 2
		st.Line.Include(float64(bounds.Min.X), y).Include(float64(bounds.Max.X-1), y)
	}
	st.Line.Fitted()
	return st
}

// buildStick checks the members and fits the axis over every pixel.
func buildStick(v *l3lag.View, id int, members []l3lag.SectionID) (*Stick, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("stick %d has no members", id)
	}
	sections := make([]*l3lag.Section, 0, len(members))
	for _, m := range members {
		s, ok := v.Live(m)
		if !ok {
			return nil, fmt.Errorf("stick %d member %d: %w", id, m, l3lag.ErrUnknownSection)
		}
		sections = append(sections, s)
	}
	if err := checkConnected(sections); err != nil {
		return nil, fmt.Errorf("stick %d: %w", id, err)
	}

	o := v.Orientation()
	st := &Stick{
		ID:          id,
		Orientation: o,
		Members:     append([]l3lag.SectionID(nil), members...),
		Line:        &Line{},
		State:       Transient,
	}
	for i, s := range sections {
		b := s.Bounds(o)
		if i == 0 {
			st.bounds = b
		} else {
			st.bounds = st.bounds.Union(b)
		}
		st.weight += s.Weight()
		for j, r := range s.Runs {
			pos := float64(s.FirstPos + j)
			for c := r.Start; c <= r.Stop(); c++ {
				st.Line.Include(float64(c), pos)
			}
		}
	}
	st.Line.Fitted()
	return st, nil
}

// checkConnected walks the edges between members only.
func checkConnected(sections []*l3lag.Section) error {
	if len(sections) <= 1 {
		return nil
	}
	index := make(map[l3lag.SectionID]int, len(sections))
	for i, s := range sections {
		index[s.ID] = i
	}
	seen := make([]bool, len(sections))
	queue := []int{0}
	seen[0] = true
	reached := 1
	for len(queue) > 0 {
		s := sections[queue[0]]
		queue = queue[1:]
		for _, edges := range [][]l3lag.Edge{s.Sources(), s.Targets()} {
			for _, e := range edges {
				j, ok := index[e.To]
				if !ok || seen[j] {
					continue
				}
				seen[j] = true
				reached++
				queue = append(queue, j)
			}
		}
	}
	if reached != len(sections) {
		return fmt.Errorf("%w: %d of %d sections reachable", ErrDisconnectedStick, reached, len(sections))
	}
	return nil
}
