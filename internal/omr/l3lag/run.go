package l3lag

import "github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"

// Run is a maximal foreground segment along one scan line. Its position
// across the line is implied by the section that holds it.
type Run struct {
	Start  int   // first coordinate along the line
	Length int   // pixels
	Level  uint8 // intensity written back when the run is painted
}

// Stop returns the last coordinate covered by the run.
func (r Run) Stop() int { return r.Start + r.Length - 1 }

// Center returns the middle coordinate of the run.
func (r Run) Center() float64 { return float64(r.Start) + float64(r.Length-1)/2 }

// Overlap returns the number of coordinates shared with o.
func (r Run) Overlap(o Run) int {
	lo := max(r.Start, o.Start)
	hi := min(r.Stop(), o.Stop())
	if hi < lo {
		return 0
	}
	return hi - lo + 1
}

// ExtractRuns returns the runs of one scan line, in increasing order.
func ExtractRuns(line []bool) []Run {
	var runs []Run
	start := -1
	for i, fg := range line {
		switch {
		case fg && start < 0:
			start = i
		case !fg && start >= 0:
			runs = append(runs, Run{Start: start, Length: i - start, Level: l1raster.Foreground})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{Start: start, Length: len(line) - start, Level: l1raster.Foreground})
	}
	return runs
}
