package l3lag

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l2binarize"
)

var (
	// ErrBrokenSection reports a section whose runs are not chained by
	// overlap, or two sections claiming the same pixel.
	ErrBrokenSection = errors.New("broken section")
	// ErrUnknownSection is returned for ids that were never allocated or
	// that refer to deleted sections.
	ErrUnknownSection = errors.New("unknown section")
	// ErrNotAdjacent is returned when linking sections that do not sit on
	// consecutive scan lines.
	ErrNotAdjacent = errors.New("sections are not on consecutive lines")
)

// Lag is the graph of sections for one orientation of one sheet.
//
// Any number of readers may inspect it concurrently through Read. All
// structural changes go through Update, which runs one writer at a time and
// bumps the version once the change is complete, so a reader never sees a
// half-applied change.
type Lag struct {
	mu          sync.RWMutex
	name        string
	orientation Orientation
	width       int // absolute raster width
	height      int // absolute raster height
	sections    []*Section
	version     uint64
}

// New returns an empty lag for a raster of the given size.
func New(name string, o Orientation, width, height int) *Lag {
	return &Lag{name: name, orientation: o, width: width, height: height}
}

// Name returns the lag's name, e.g. "hLag".
func (l *Lag) Name() string { return l.name }

// Orientation returns the run orientation.
func (l *Lag) Orientation() Orientation { return l.orientation }

// Version returns the number of committed updates.
func (l *Lag) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Read runs fn with a consistent view of the lag.
func (l *Lag) Read(fn func(v *View)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(&View{lag: l})
}

// Update runs fn as the only writer. The version is bumped when fn changed
// the lag. Changes already applied are kept when fn fails, and the version
// is bumped in that case too, so readers holding the old token refresh.
func (l *Lag) Update(fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx := &Tx{View: View{lag: l}}
	err := fn(tx)
	if err != nil || tx.changed {
		l.version++
	}
	if tx.changed {
		tracef("%s: update committed, version %d", l.name, l.version)
	}
	return err
}

// View is a read-only window on a lag, valid only inside Read or Update.
type View struct {
	lag *Lag
}

// Orientation returns the run orientation.
func (v *View) Orientation() Orientation { return v.lag.orientation }

// Size returns the absolute raster size.
func (v *View) Size() (width, height int) { return v.lag.width, v.lag.height }

// Version returns the version the view is reading.
func (v *View) Version() uint64 { return v.lag.version }

// Section returns the section with the given id, dead or alive.
func (v *View) Section(id SectionID) (*Section, bool) {
	if id <= 0 || int(id) > len(v.lag.sections) {
		return nil, false
	}
	return v.lag.sections[id-1], true
}

// Live returns the section with the given id if it is still alive.
func (v *View) Live(id SectionID) (*Section, bool) {
	s, ok := v.Section(id)
	if !ok || s.dead {
		return nil, false
	}
	return s, true
}

// Sections returns all live sections ordered by id.
func (v *View) Sections() []*Section {
	out := make([]*Section, 0, len(v.lag.sections))
	for _, s := range v.lag.sections {
		if !s.dead {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of live sections.
func (v *View) Len() int {
	n := 0
	for _, s := range v.lag.sections {
		if !s.dead {
			n++
		}
	}
	return n
}

// SectionsAt returns the live sections that hold a run at pos, ordered by
// run start.
func (v *View) SectionsAt(pos int) []*Section {
	var out []*Section
	for _, s := range v.lag.sections {
		if s.dead {
			continue
		}
		if _, ok := s.RunAt(pos); ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, _ := out[i].RunAt(pos)
		rj, _ := out[j].RunAt(pos)
		return ri.Start < rj.Start
	})
	return out
}

// SectionAtPixel returns the live section covering absolute (x, y).
func (v *View) SectionAtPixel(x, y int) (*Section, bool) {
	pos, coord := v.lag.orientation.Oriented(x, y)
	for _, s := range v.SectionsAt(pos) {
		if r, _ := s.RunAt(pos); r.Start <= coord && coord <= r.Stop() {
			return s, true
		}
	}
	return nil, false
}

// Foreground rebuilds the foreground mask covered by live sections.
func (v *View) Foreground() *l2binarize.Mask {
	m := l2binarize.NewMask(v.lag.width, v.lag.height)
	o := v.lag.orientation
	for _, s := range v.lag.sections {
		if s.dead {
			continue
		}
		for i, r := range s.Runs {
			for c := r.Start; c <= r.Stop(); c++ {
				x, y := o.Absolute(s.FirstPos+i, c)
				m.Set(x, y, true)
			}
		}
	}
	return m
}

// Validate checks that every live section chains overlapping runs and that
// no pixel belongs to two runs.
func (v *View) Validate() error {
	lines, _ := v.lag.orientation.Dims(v.lag.width, v.lag.height)
	perLine := make(map[int][]Run, lines)
	for _, s := range v.lag.sections {
		if s.dead {
			continue
		}
		if len(s.Runs) == 0 {
			return fmt.Errorf("%w: section %d has no runs", ErrBrokenSection, s.ID)
		}
		for i, r := range s.Runs {
			if r.Length <= 0 {
				return fmt.Errorf("%w: section %d run %d has length %d", ErrBrokenSection, s.ID, i, r.Length)
			}
			if i > 0 && s.Runs[i-1].Overlap(r) == 0 {
				return fmt.Errorf("%w: section %d runs %d and %d do not overlap", ErrBrokenSection, s.ID, i-1, i)
			}
			pos := s.FirstPos + i
			perLine[pos] = append(perLine[pos], r)
		}
	}
	for pos, runs := range perLine {
		sort.Slice(runs, func(i, j int) bool { return runs[i].Start < runs[j].Start })
		for i := 1; i < len(runs); i++ {
			if runs[i].Start <= runs[i-1].Stop() {
				return fmt.Errorf("%w: runs overlap on line %d at %d", ErrBrokenSection, pos, runs[i].Start)
			}
		}
	}
	return nil
}

// Tx is the mutation handle given to Update.
type Tx struct {
	View
	changed bool
}

// CreateSection allocates a one-run section at pos.
func (tx *Tx) CreateSection(pos int, r Run) SectionID {
	l := tx.lag
	id := SectionID(len(l.sections) + 1)
	l.sections = append(l.sections, &Section{ID: id, FirstPos: pos, Runs: []Run{r}})
	tx.changed = true
	return id
}

// AppendRun adds r after the last run of section id.
func (tx *Tx) AppendRun(id SectionID, r Run) error {
	s, ok := tx.Live(id)
	if !ok {
		return fmt.Errorf("append run: %w: %d", ErrUnknownSection, id)
	}
	if len(s.targets) > 0 {
		return fmt.Errorf("append run: section %d already has targets", id)
	}
	s.Runs = append(s.Runs, r)
	tx.changed = true
	return nil
}

// PrependRun adds r before the first run of section id.
func (tx *Tx) PrependRun(id SectionID, r Run) error {
	s, ok := tx.Live(id)
	if !ok {
		return fmt.Errorf("prepend run: %w: %d", ErrUnknownSection, id)
	}
	if len(s.sources) > 0 {
		return fmt.Errorf("prepend run: section %d already has sources", id)
	}
	s.Runs = append([]Run{r}, s.Runs...)
	s.FirstPos--
	tx.changed = true
	return nil
}

// Link adds an edge from the section ending on line p to the section
// starting on line p+1, weighted by the overlap of their boundary runs.
func (tx *Tx) Link(from, to SectionID) error {
	src, ok := tx.Live(from)
	if !ok {
		return fmt.Errorf("link: %w: %d", ErrUnknownSection, from)
	}
	dst, ok := tx.Live(to)
	if !ok {
		return fmt.Errorf("link: %w: %d", ErrUnknownSection, to)
	}
	if src.LastPos()+1 != dst.FirstPos {
		return fmt.Errorf("link %d->%d: %w", from, to, ErrNotAdjacent)
	}
	for _, e := range src.targets {
		if e.To == to {
			return nil
		}
	}
	w := src.LastRun().Overlap(dst.FirstRun())
	src.targets = append(src.targets, Edge{To: to, Weight: w})
	dst.sources = append(dst.sources, Edge{To: from, Weight: w})
	tx.changed = true
	return nil
}

// Delete marks section id as dead and unlinks it from its neighbours. The
// section's runs stay readable through View.Section.
func (tx *Tx) Delete(id SectionID) error {
	s, ok := tx.Live(id)
	if !ok {
		return fmt.Errorf("delete: %w: %d", ErrUnknownSection, id)
	}
	for _, e := range s.sources {
		if n, ok := tx.Section(e.To); ok {
			n.targets = removeEdge(n.targets, id)
		}
	}
	for _, e := range s.targets {
		if n, ok := tx.Section(e.To); ok {
			n.sources = removeEdge(n.sources, id)
		}
	}
	s.sources, s.targets = nil, nil
	s.dead = true
	tx.changed = true
	return nil
}

// SetRole changes the role of section id.
func (tx *Tx) SetRole(id SectionID, role Role) error {
	s, ok := tx.Live(id)
	if !ok {
		return fmt.Errorf("set role: %w: %d", ErrUnknownSection, id)
	}
	s.Role = role
	tx.changed = true
	return nil
}

// SetStick records the stick that owns section id (0 frees it).
func (tx *Tx) SetStick(id SectionID, stick int) error {
	s, ok := tx.Live(id)
	if !ok {
		return fmt.Errorf("set stick: %w: %d", ErrUnknownSection, id)
	}
	s.Stick = stick
	tx.changed = true
	return nil
}
