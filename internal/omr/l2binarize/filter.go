package l2binarize

import (
	"fmt"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

// ForegroundSource hands out the foreground decision of a raster one column
// at a time. Implementations backed by a Tile only accept increasing
// columns.
type ForegroundSource interface {
	Width() int
	Height() int
	// Column fills dst (len >= Height) with the foreground flags of column x.
	Column(x int, dst []bool) error
}

// ColumnStats is reported to an Observer after each column is classified.
// With a vertical window, Mean, StdDev and Threshold are averages over the
// rows of the column.
type ColumnStats struct {
	X          int
	Mean       float64
	StdDev     float64
	Threshold  float64
	Foreground int // foreground pixels in the column
}

// Observer receives per-column statistics, e.g. for tuning plots.
type Observer interface {
	ObserveColumn(ColumnStats)
}

// Filter is the adaptive foreground predicate: a pixel is foreground when
// its value is at most mean - k*stddev of its window and strictly below the
// mean, so that flat areas never turn to ink.
type Filter struct {
	raster   l1raster.Raster
	tile     *Tile
	cfg      Config
	values   []uint8
	observer Observer
}

// NewFilter binds a fresh Tile to r.
func NewFilter(r l1raster.Raster, cfg *Config) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid binarization config: %w", err)
	}
	tile, err := NewTile(r, cfg.HalfWindow)
	if err != nil {
		return nil, err
	}
	diagf("filter %dx%d half_window=%d vertical_half_window=%d k=%.3f",
		r.Width(), r.Height(), cfg.HalfWindow, cfg.VerticalHalfWindow, cfg.KFactor)
	return &Filter{
		raster: r,
		tile:   tile,
		cfg:    *cfg,
		values: make([]uint8, r.Height()),
	}, nil
}

// SetObserver installs o. Pass nil to remove it.
func (f *Filter) SetObserver(o Observer) { f.observer = o }

// Width returns the raster width.
func (f *Filter) Width() int { return f.raster.Width() }

// Height returns the raster height.
func (f *Filter) Height() int { return f.raster.Height() }

// Column classifies column x. Columns must be requested in increasing
// order; asking for a column left of the previous one returns
// ErrOrderingViolation.
func (f *Filter) Column(x int, dst []bool) error {
	t := f.tile
	if err := t.acquire(); err != nil {
		return err
	}
	defer t.release()

	if err := t.moveTo(x); err != nil {
		return err
	}
	l1raster.ReadColumn(f.raster, x, f.values)

	k := f.cfg.KFactor
	v := f.cfg.VerticalHalfWindow
	full := t.stats(0, t.height-1)
	fullThreshold := full.Mean - k*full.StdDev

	count := 0
	var sumMean, sumStdDev, sumThreshold float64
	for y, value := range f.values {
		mean, threshold := full.Mean, fullThreshold
		if v > 0 {
			s := t.StatsRows(y, v)
			mean, threshold = s.Mean, s.Mean-k*s.StdDev
			sumMean += s.Mean
			sumStdDev += s.StdDev
			sumThreshold += threshold
		}
		fg := float64(value) <= threshold && float64(value) < mean
		dst[y] = fg
		if fg {
			count++
		}
	}

	if f.observer != nil {
		cs := ColumnStats{
			X:          x,
			Mean:       full.Mean,
			StdDev:     full.StdDev,
			Threshold:  fullThreshold,
			Foreground: count,
		}
		// With a vertical window each row has its own threshold: report
		// the column averages of what was actually applied.
		if n := float64(len(f.values)); v > 0 && n > 0 {
			cs.Mean, cs.StdDev, cs.Threshold = sumMean/n, sumStdDev/n, sumThreshold/n
		}
		f.observer.ObserveColumn(cs)
	}
	return nil
}

// IsForeground classifies a single pixel, moving the tile to column x.
func (f *Filter) IsForeground(x, y int) (bool, error) {
	col := make([]bool, f.Height())
	if err := f.Column(x, col); err != nil {
		return false, err
	}
	return col[y], nil
}
