package l2binarize

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

var (
	// ErrOrderingViolation is returned when a Tile is asked to move to a
	// column left of its current one. Tiles only move forward.
	ErrOrderingViolation = errors.New("tile can only move forward")
	// ErrConcurrentUse is returned when a second goroutine touches a Tile
	// while another one is advancing it.
	ErrConcurrentUse = errors.New("tile is owned by another scan")
)

// Stats describes the neighbourhood of one pixel.
type Stats struct {
	Mean   float64
	StdDev float64
	Count  int // pixels in the window
}

// Tile is a sliding window over the columns of a raster. It keeps, for each
// of the 2h+1 columns around the current one, the cumulative sums and sums
// of squares of the column's intensities down the rows. The window totals
// are kept per row prefix too, so any vertical sub-window is answered in
// constant time.
//
// A Tile belongs to a single sequential scan and only moves forward.
type Tile struct {
	raster     l1raster.Raster
	width      int
	height     int
	halfWindow int
	size       int // 2*halfWindow + 1

	// Circular buffer of per-column prefix sums, slot = column % size.
	colSum [][]int64
	colSq  [][]int64

	// Prefix sums of the whole window, len height+1.
	winSum []int64
	winSq  []int64

	lo, hi int // columns currently in the window, empty when hi < lo
	x      int // current column, -1 before the first move

	buf   []uint8
	inUse atomic.Bool
}

// NewTile allocates a Tile of 2*halfWindow+1 columns over r.
func NewTile(r l1raster.Raster, halfWindow int) (*Tile, error) {
	if halfWindow < 0 {
		return nil, fmt.Errorf("half window must be non-negative, got %d", halfWindow)
	}
	size := 2*halfWindow + 1
	if w := r.Width(); w > 0 && size > w {
		size = w
	}
	h := r.Height()
	t := &Tile{
		raster:     r,
		width:      r.Width(),
		height:     h,
		halfWindow: halfWindow,
		size:       size,
		colSum:     make([][]int64, size),
		colSq:      make([][]int64, size),
		winSum:     make([]int64, h+1),
		winSq:      make([]int64, h+1),
		lo:         0,
		hi:         -1,
		x:          -1,
		buf:        make([]uint8, h),
	}
	for i := range t.colSum {
		t.colSum[i] = make([]int64, h+1)
		t.colSq[i] = make([]int64, h+1)
	}
	return t, nil
}

// X returns the current column, or -1 if the tile has not moved yet.
func (t *Tile) X() int { return t.x }

// MoveTo slides the window so that it is centred on column x.
func (t *Tile) MoveTo(x int) error {
	if err := t.acquire(); err != nil {
		return err
	}
	defer t.release()
	return t.moveTo(x)
}

// Stats returns the statistics of the full-height window around the
// current column. Only the goroutine that moves the tile may call it.
func (t *Tile) Stats() Stats {
	return t.stats(0, t.height-1)
}

// StatsRows returns the statistics of the window restricted to the rows
// y-v..y+v, truncated at the raster edges.
func (t *Tile) StatsRows(y, v int) Stats {
	yLo, yHi := y-v, y+v
	if yLo < 0 {
		yLo = 0
	}
	if yHi > t.height-1 {
		yHi = t.height - 1
	}
	return t.stats(yLo, yHi)
}

func (t *Tile) acquire() error {
	if !t.inUse.CompareAndSwap(false, true) {
		opsf("concurrent use of tile at column %d", t.x)
		return ErrConcurrentUse
	}
	return nil
}

func (t *Tile) release() {
	t.inUse.Store(false)
}

func (t *Tile) moveTo(x int) error {
	if x < 0 || x >= t.width {
		return fmt.Errorf("column %d outside raster width %d", x, t.width)
	}
	if x < t.x {
		opsf("tile moved backward from column %d to %d", t.x, x)
		return fmt.Errorf("%w: column %d is left of current column %d", ErrOrderingViolation, x, t.x)
	}
	if x == t.x {
		return nil
	}

	newLo := x - t.halfWindow
	if newLo < 0 {
		newLo = 0
	}
	newHi := x + t.halfWindow
	if newHi > t.width-1 {
		newHi = t.width - 1
	}

	// Evict before ingesting: a column entering the window may reuse the
	// slot of one that is leaving it.
	for c := t.lo; c < newLo && c <= t.hi; c++ {
		t.evict(c)
	}
	start := t.hi + 1
	if start < newLo {
		start = newLo
	}
	for c := start; c <= newHi; c++ {
		t.ingest(c)
	}
	t.lo, t.hi, t.x = newLo, newHi, x
	tracef("tile at column %d window [%d,%d]", x, newLo, newHi)
	return nil
}

func (t *Tile) ingest(c int) {
	slot := c % t.size
	sum, sq := t.colSum[slot], t.colSq[slot]
	l1raster.ReadColumn(t.raster, c, t.buf)
	sum[0], sq[0] = 0, 0
	for y, v := range t.buf {
		iv := int64(v)
		sum[y+1] = sum[y] + iv
		sq[y+1] = sq[y] + iv*iv
	}
	for i := range t.winSum {
		t.winSum[i] += sum[i]
		t.winSq[i] += sq[i]
	}
}

func (t *Tile) evict(c int) {
	slot := c % t.size
	sum, sq := t.colSum[slot], t.colSq[slot]
	for i := range t.winSum {
		t.winSum[i] -= sum[i]
		t.winSq[i] -= sq[i]
	}
}

func (t *Tile) stats(yLo, yHi int) Stats {
	cols := t.hi - t.lo + 1
	rows := yHi - yLo + 1
	if cols <= 0 || rows <= 0 {
		return Stats{}
	}
	count := cols * rows
	sum := t.winSum[yHi+1] - t.winSum[yLo]
	sq := t.winSq[yHi+1] - t.winSq[yLo]

	n := float64(count)
	mean := float64(sum) / n
	variance := float64(sq)/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return Stats{Mean: mean, StdDev: math.Sqrt(variance), Count: count}
}
