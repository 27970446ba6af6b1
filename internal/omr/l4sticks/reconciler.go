package l4sticks

import (
	"fmt"
	"math"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
)

// Result summarises one cleanup.
type Result struct {
	Borders []l3lag.SectionID // neighbours absorbed into the stick
	Patches []l3lag.SectionID // sections synthesized through the gap
	Skipped int               // crossings left unpatched for lack of a line
}

// Reconciler repairs a lag and its raster when a stick is rejected.
type Reconciler struct {
	nest   *Nest
	raster l1raster.Writable
	cfg    Config
}

// NewReconciler binds a reconciler to the sticks of nest and the raster
// their pixels were read from.
func NewReconciler(nest *Nest, raster l1raster.Writable, cfg *Config) (*Reconciler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconciler config: %w", err)
	}
	return &Reconciler{nest: nest, raster: raster, cfg: *cfg}, nil
}

// cleanup is the state of one Cleanup call.
type cleanup struct {
	tx      *l3lag.Tx
	stick   *Stick
	members []l3lag.SectionID // stick members, then borders once absorbed
	borders []l3lag.SectionID
	border  map[l3lag.SectionID]bool
	patched map[patchKey]bool
	result  Result
}

// patchKey identifies a crossing object on one side of the stick. An object
// touching several member sections is patched once.
type patchKey struct {
	id  l3lag.SectionID
	dir int
}

// Cleanup deletes stick from the lag. Each neighbour of a member section is
// either absorbed as a border (a single run barely attached on its far
// side) or treated as a crossing object and extended through the gap up
// to the middle of the stick's thickness. Member and border pixels are
// then erased to background and patches painted at the patch grey level.
//
// The whole cleanup is one lag update, so readers never see it half done.
// The stick is marked Deleted only when the update succeeds.
func (r *Reconciler) Cleanup(stick *Stick) (*Result, error) {
	lag := r.nest.Lag()

	var c *cleanup
	err := lag.Update(func(tx *l3lag.Tx) error {
		if !r.nest.IsActive(stick.ID) {
			return fmt.Errorf("stick %d is not active", stick.ID)
		}
		c = &cleanup{
			tx:      tx,
			stick:   stick,
			members: append([]l3lag.SectionID(nil), stick.Members...),
			border:  make(map[l3lag.SectionID]bool),
			patched: make(map[patchKey]bool),
		}

		for _, id := range stick.Members {
			if err := r.cleanupMember(c, id, true); err != nil {
				return err
			}
		}
		c.members = append(c.members, c.borders...)
		// Borders found while processing borders are not chased further.
		borders := append([]l3lag.SectionID(nil), c.borders...)
		for _, id := range borders {
			if err := r.cleanupMember(c, id, false); err != nil {
				return err
			}
		}

		o := tx.Orientation()
		for _, id := range c.members {
			if s, ok := tx.Section(id); ok {
				s.Write(r.raster, o, l1raster.Background)
			}
		}
		for _, id := range c.result.Patches {
			if s, ok := tx.Section(id); ok {
				s.Write(r.raster, o, r.cfg.PatchGreyLevel)
			}
		}
		r.nest.markDeleted(stick.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup stick %d: %w", stick.ID, err)
	}

	c.result.Borders = c.borders
	diagf("%s: stick %d cleaned, %d borders, %d patches, %d skipped",
		lag.Name(), stick.ID, len(c.borders), len(c.result.Patches), c.result.Skipped)
	return &c.result, nil
}

func (r *Reconciler) cleanupMember(c *cleanup, id l3lag.SectionID, borderEnabled bool) error {
	s, ok := c.tx.Live(id)
	if !ok {
		return fmt.Errorf("member %d: %w", id, l3lag.ErrUnknownSection)
	}
	for _, e := range s.Sources() {
		if err := r.cleanupSection(c, s, e.To, +1, borderEnabled); err != nil {
			return err
		}
	}
	for _, e := range s.Targets() {
		if err := r.cleanupSection(c, s, e.To, -1, borderEnabled); err != nil {
			return err
		}
	}
	return c.tx.Delete(id)
}

// cleanupSection handles one neighbour sct of the stick section. dir is +1
// when sct lies on lower positions (a source) and the patch grows towards
// higher positions, -1 the other way round.
func (r *Reconciler) cleanupSection(c *cleanup, section *l3lag.Section, sctID l3lag.SectionID, dir int, borderEnabled bool) error {
	sct, ok := c.tx.Live(sctID)
	if !ok || c.border[sctID] || c.stick.HasMember(sctID) {
		return nil
	}
	if sct.Stick != 0 && sct.Stick != c.stick.ID && r.nest.IsActive(sct.Stick) {
		tracef("section %d kept, it belongs to active stick %d", sctID, sct.Stick)
		return nil
	}

	if borderEnabled && sct.RunCount() == 1 {
		adj := sct.LastAdjacency()
		if dir > 0 {
			adj = sct.FirstAdjacency()
		}
		if adj <= r.cfg.MaxBorderAdjacency {
			if err := c.tx.SetRole(sctID, l3lag.RoleBorder); err != nil {
				return err
			}
			if err := c.tx.SetStick(sctID, c.stick.ID); err != nil {
				return err
			}
			c.border[sctID] = true
			c.borders = append(c.borders, sctID)
			tracef("section %d absorbed as border, adjacency %.2f", sctID, adj)
			return nil
		}
	}
	return r.patchSection(c, section, sct, dir)
}

// contact returns the union of the coordinate ranges, on line pos, of the
// stick sections whose run there overlaps run.
func (c *cleanup) contact(pos int, run l3lag.Run) (lo, hi int, ok bool) {
	lo, hi = math.MaxInt, math.MinInt
	for _, id := range c.members {
		s, found := c.tx.Section(id)
		if !found {
			continue
		}
		mr, found := s.RunAt(pos)
		if !found || mr.Overlap(run) <= 0 {
			continue
		}
		lo, hi = min(lo, mr.Start), max(hi, mr.Stop())
	}
	return lo, hi, lo <= hi
}

// middle returns the position halfway through the stick sections that
// overlap the coordinate range [c1, c2].
func (c *cleanup) middle(c1, c2 int) (int, bool) {
	firstPos, lastPos := math.MaxInt, math.MinInt
	for _, id := range c.members {
		s, ok := c.tx.Section(id)
		if !ok {
			continue
		}
		lo, hi := s.CoordRange()
		if max(c1, lo) <= min(c2, hi) {
			firstPos = min(firstPos, s.FirstPos)
			lastPos = max(lastPos, s.LastPos())
		}
	}
	if firstPos > lastPos {
		return 0, false
	}
	return int(math.RoundToEven(float64(firstPos+lastPos) / 2)), true
}

// patchSection extends the crossing object sct through the stick section.
//
// Tangents are fitted on the start and stop coordinates of up to
// MinPointNb runs of sct next to the contact. When they diverge beyond
// MaxDeltaSlope, both sides are merged into a single axis and the contact
// run length is kept. Without enough runs the contact run is extended
// straight. The patch grows from the stick section's boundary up to the
// middle of the stick, the lower half belonging to the patch coming from
// below so that no line is patched twice.
func (r *Reconciler) patchSection(c *cleanup, section, sct *l3lag.Section, dir int) error {
	key := patchKey{id: sct.ID, dir: dir}
	if c.patched[key] {
		tracef("stick %d: section %d already patched", c.stick.ID, sct.ID)
		return nil
	}
	c.patched[key] = true

	var lineRun, run l3lag.Run
	var begin int
	if dir > 0 {
		run = sct.LastRun()
		lineRun = section.FirstRun()
		begin = section.FirstPos
	} else {
		run = sct.FirstRun()
		lineRun = section.LastRun()
		begin = section.LastPos()
	}
	lineLo, lineHi := lineRun.Start, lineRun.Stop()
	if lo, hi, ok := c.contact(begin, run); ok {
		lineLo, lineHi = lo, hi
	}

	startTg, stopTg := &Line{}, &Line{}
	length := run.Length
	var c1, c2 int
	if lineHi-lineLo+1 < length {
		// The stick is narrower than the contact: use its own extent.
		startTg.Include(float64(begin), float64(lineLo))
		stopTg.Include(float64(begin), float64(lineHi))
		c1, c2 = lineLo, lineHi
		length = lineHi - lineLo + 1
	} else {
		c1, c2 = run.Start, run.Stop()
	}
	center := float64(c1+c2) / 2

	mid, ok := c.middle(c1, c2)
	if !ok {
		opsf("stick %d: cannot find line around [%d,%d] for section %d", c.stick.ID, c1, c2, sct.ID)
		c.result.Skipped++
		return nil
	}
	past := mid + dir
	if dir < 0 {
		past = mid
	}

	if startTg.PointNb()+sct.RunCount() >= r.cfg.MinPointNb {
		for pos := begin; startTg.PointNb() < r.cfg.MinPointNb; {
			pos -= dir
			rr, ok := sct.RunAt(pos)
			if !ok {
				break
			}
			startTg.Include(float64(pos), float64(rr.Start))
			stopTg.Include(float64(pos), float64(rr.Stop()))
		}
	}

	var axis *Line
	if startTg.PointNb() >= r.cfg.MinPointNb {
		if (stopTg.Slope()-startTg.Slope())*float64(dir) > r.cfg.MaxDeltaSlope {
			axis = startTg.Merge(stopTg)
			startTg, stopTg = nil, nil
		}
	} else {
		startTg, stopTg = nil, nil
	}

	if (past-begin)*dir <= 0 {
		tracef("stick %d: nothing to patch from %d towards %d for section %d", c.stick.ID, begin, past, sct.ID)
		return nil
	}

	var patch l3lag.SectionID
	for pos := begin; pos != past; pos += dir {
		var start int
		if startTg != nil {
			start = startTg.AtInt(pos)
			length = stopTg.AtInt(pos) - start + 1
			if length <= 0 {
				break
			}
		} else {
			if axis != nil {
				center = axis.At(float64(pos))
			}
			start = int(math.RoundToEven(center - float64(length)/2 + 0.5))
		}
		nr := l3lag.Run{Start: start, Length: length, Level: r.cfg.PatchGreyLevel}

		if patch == 0 {
			patch = c.tx.CreateSection(pos, nr)
			if err := c.tx.SetRole(patch, l3lag.RolePatch); err != nil {
				return err
			}
			var err error
			if dir > 0 {
				err = c.tx.Link(sct.ID, patch)
			} else {
				err = c.tx.Link(patch, sct.ID)
			}
			if err != nil {
				return err
			}
			c.result.Patches = append(c.result.Patches, patch)
			continue
		}
		var err error
		if dir > 0 {
			err = c.tx.AppendRun(patch, nr)
		} else {
			err = c.tx.PrependRun(patch, nr)
		}
		if err != nil {
			return err
		}
	}
	if patch != 0 {
		tracef("stick %d: patch %d grown from section %d", c.stick.ID, patch, sct.ID)
	}
	return nil
}
