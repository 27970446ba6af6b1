package l3lag

import (
	"fmt"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l2binarize"
)

// Build scans src along orientation o and returns the resulting lag.
//
// Vertical lags read src column by column, so a Filter can be consumed
// directly in a single forward pass. Horizontal lags need rows, so src is
// materialised into a Mask first unless it already is one.
func Build(name string, src l2binarize.ForegroundSource, o Orientation, cfg *Config) (*Lag, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lag config: %w", err)
	}
	width, height := src.Width(), src.Height()
	lines, length := o.Dims(width, height)

	readLine, err := lineReader(src, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	lag := New(name, o, width, height)
	err = lag.Update(func(tx *Tx) error {
		b := builder{tx: tx, cfg: cfg}
		line := make([]bool, length)
		var prevRuns []Run
		var prevIDs []SectionID
		for pos := 0; pos < lines; pos++ {
			if err := readLine(pos, line); err != nil {
				return fmt.Errorf("line %d: %w", pos, err)
			}
			runs := ExtractRuns(line)
			ids, err := b.addLine(pos, prevRuns, prevIDs, runs)
			if err != nil {
				return fmt.Errorf("line %d: %w", pos, err)
			}
			tracef("%s line %d: %d runs", name, pos, len(runs))
			prevRuns, prevIDs = runs, ids
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}

	lag.Read(func(v *View) {
		diagf("%s built: %s, %d sections over %d lines", name, o, v.Len(), lines)
	})
	return lag, nil
}

func lineReader(src l2binarize.ForegroundSource, o Orientation) (func(pos int, dst []bool) error, error) {
	if o == Vertical {
		return src.Column, nil
	}
	m, ok := src.(*l2binarize.Mask)
	if !ok {
		var err error
		if m, err = l2binarize.Materialize(src); err != nil {
			return nil, err
		}
	}
	return func(pos int, dst []bool) error {
		m.Row(pos, dst)
		return nil
	}, nil
}

type builder struct {
	tx  *Tx
	cfg *Config
}

// addLine attaches the runs of line pos to the sections ending on line
// pos-1. A run continues a section only when it is the sole overlap of the
// section's last run and that run is its sole overlap; otherwise it opens
// a new section linked to every section it touches.
func (b *builder) addLine(pos int, prev []Run, prevIDs []SectionID, cur []Run) ([]SectionID, error) {
	overlaps := make([][]int, len(cur))
	prevCount := make([]int, len(prev))
	i0 := 0
	for j, r := range cur {
		for i0 < len(prev) && prev[i0].Stop() < r.Start {
			i0++
		}
		for i := i0; i < len(prev) && prev[i].Start <= r.Stop(); i++ {
			overlaps[j] = append(overlaps[j], i)
			prevCount[i]++
		}
	}

	ids := make([]SectionID, len(cur))
	for j, r := range cur {
		if len(overlaps[j]) == 1 {
			i := overlaps[j][0]
			if prevCount[i] == 1 && b.cfg.continues(prev[i], r) {
				if err := b.tx.AppendRun(prevIDs[i], r); err != nil {
					return nil, err
				}
				ids[j] = prevIDs[i]
				continue
			}
		}
		id := b.tx.CreateSection(pos, r)
		for _, i := range overlaps[j] {
			if err := b.tx.Link(prevIDs[i], id); err != nil {
				return nil, err
			}
		}
		ids[j] = id
	}
	return ids, nil
}
