// Package monitor records binarization statistics for offline tuning.
package monitor

import (
	"fmt"
	"image/color"
	"path"
	"sort"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/sheet.skeleton/internal/fsutil"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l2binarize"
)

// ProfilePlotter collects the per-column statistics of an adaptive
// binarization and plots them against the column abscissa. It implements
// l2binarize.Observer.
type ProfilePlotter struct {
	mu      sync.Mutex
	sheet   string
	enabled bool
	samples []l2binarize.ColumnStats
}

// NewProfilePlotter returns an enabled plotter labelled with sheet.
func NewProfilePlotter(sheet string) *ProfilePlotter {
	return &ProfilePlotter{sheet: sheet, enabled: true}
}

// ObserveColumn records one column.
func (pp *ProfilePlotter) ObserveColumn(cs l2binarize.ColumnStats) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if !pp.enabled {
		return
	}
	pp.samples = append(pp.samples, cs)
}

// Stop disables sampling. Samples already taken are kept.
func (pp *ProfilePlotter) Stop() {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	pp.enabled = false
}

// SampleCount returns the number of recorded columns.
func (pp *ProfilePlotter) SampleCount() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.samples)
}

// Reset drops the samples and re-enables recording.
func (pp *ProfilePlotter) Reset() {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	pp.samples = nil
	pp.enabled = true
}

// GeneratePlots writes two PNG files into dir: the mean, threshold and
// standard deviation per column, and the foreground pixel count per column.
// Returns the written paths.
func (pp *ProfilePlotter) GeneratePlots(fs fsutil.FileSystem, dir string) ([]string, error) {
	pp.mu.Lock()
	samples := append([]l2binarize.ColumnStats(nil), pp.samples...)
	pp.mu.Unlock()

	if len(samples) == 0 {
		return nil, nil
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	sort.Slice(samples, func(a, b int) bool { return samples[a].X < samples[b].X })

	pLevels := plot.New()
	pLevels.Title.Text = fmt.Sprintf("%s - Column statistics", pp.sheet)
	pLevels.X.Label.Text = "Column"
	pLevels.Y.Label.Text = "Grey level"

	pFg := plot.New()
	pFg.Title.Text = fmt.Sprintf("%s - Foreground pixels", pp.sheet)
	pFg.X.Label.Text = "Column"
	pFg.Y.Label.Text = "Pixels"

	meanPts := make(plotter.XYs, len(samples))
	thrPts := make(plotter.XYs, len(samples))
	stdPts := make(plotter.XYs, len(samples))
	fgPts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		x := float64(s.X)
		meanPts[i] = plotter.XY{X: x, Y: s.Mean}
		thrPts[i] = plotter.XY{X: x, Y: s.Threshold}
		stdPts[i] = plotter.XY{X: x, Y: s.StdDev}
		fgPts[i] = plotter.XY{X: x, Y: float64(s.Foreground)}
	}

	colors := generateColors(4)
	series := []struct {
		label string
		pts   plotter.XYs
		p     *plot.Plot
	}{
		{"mean", meanPts, pLevels},
		{"threshold", thrPts, pLevels},
		{"stddev", stdPts, pLevels},
		{"foreground", fgPts, pFg},
	}
	for i, s := range series {
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return nil, err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		s.p.Add(line)
		s.p.Legend.Add(s.label, line)
	}
	for _, p := range []*plot.Plot{pLevels, pFg} {
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}

	levelsFile := path.Join(dir, fsutil.SanitizeName(pp.sheet)+"_levels.png")
	if err := savePNG(fs, pLevels, levelsFile); err != nil {
		return nil, fmt.Errorf("save levels plot: %w", err)
	}
	fgFile := path.Join(dir, fsutil.SanitizeName(pp.sheet)+"_foreground.png")
	if err := savePNG(fs, pFg, fgFile); err != nil {
		return []string{levelsFile}, fmt.Errorf("save foreground plot: %w", err)
	}
	return []string{levelsFile, fgFile}, nil
}

func savePNG(fs fsutil.FileSystem, p *plot.Plot, name string) error {
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	w, err := fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// generateColors creates a palette of distinct colors for the series.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255), uint8(hueToRGB(p, q, h) * 255), uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
