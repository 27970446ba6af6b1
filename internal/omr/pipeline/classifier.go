package pipeline

import (
	"fmt"
	"image"

	"github.com/banshee-data/sheet.skeleton/internal/config"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
)

// Proposal is a stick offered by a Classifier. Accepted proposals are
// registered, rejected ones are removed from their lag and raster.
type Proposal struct {
	Orientation l3lag.Orientation
	Members     []l3lag.SectionID
	Accept      bool
	Kind        string // free-form label used in logs
}

// Classifier decides which sections of a sheet's lags form sticks.
type Classifier interface {
	Classify(sheet *Sheet, hLag, vLag *l3lag.Lag) ([]Proposal, error)
}

// ClassifierConfig holds the thresholds of GeometricClassifier, resolved to
// pixels except MinBarHeight.
type ClassifierConfig struct {
	MinBarHeight     float64 // fraction of the staff height a bar must cover
	MaxBarThickness  int
	MinLineLength    int
	MaxLineThickness int
}

// DefaultClassifierConfig returns the default thresholds for scale.
func DefaultClassifierConfig(scale l1raster.Scale) *ClassifierConfig {
	return ClassifierConfigFromTuning(config.EmptyTuningConfig(), scale)
}

// ClassifierConfigFromTuning resolves the classifier thresholds of cfg.
func ClassifierConfigFromTuning(cfg *config.TuningConfig, scale l1raster.Scale) *ClassifierConfig {
	return &ClassifierConfig{
		MinBarHeight:     cfg.GetMinBarHeight(),
		MaxBarThickness:  max(1, scale.ToPixels(l1raster.Fraction(cfg.GetMaxBarThickness()))),
		MinLineLength:    scale.ToPixels(l1raster.Fraction(cfg.GetMinLineLength())),
		MaxLineThickness: max(1, scale.ToPixels(l1raster.Fraction(cfg.GetMaxLineThickness()))),
	}
}

// Validate checks the thresholds.
func (c *ClassifierConfig) Validate() error {
	if c.MinBarHeight <= 0 || c.MinBarHeight > 1 {
		return fmt.Errorf("min_bar_height must be in (0, 1], got %f", c.MinBarHeight)
	}
	if c.MaxBarThickness < 1 || c.MaxLineThickness < 1 {
		return fmt.Errorf("thickness limits must be at least one pixel")
	}
	if c.MinLineLength < 1 {
		return fmt.Errorf("min_line_length must be at least one pixel, got %d", c.MinLineLength)
	}
	return nil
}

// GeometricClassifier proposes sticks from section geometry alone. Thin
// vertical sections covering most of a staff's height are accepted as bar
// candidates. Thin horizontal sections long enough to be staff lines and
// lying within a staff are rejected, which removes the staff lines and
// patches the objects crossing them.
type GeometricClassifier struct {
	cfg ClassifierConfig
}

// NewGeometricClassifier validates cfg and returns a classifier.
func NewGeometricClassifier(cfg *ClassifierConfig) (*GeometricClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier config: %w", err)
	}
	return &GeometricClassifier{cfg: *cfg}, nil
}

// Classify returns the staff line proposals first, then the bar proposals,
// each group ordered by section id.
func (c *GeometricClassifier) Classify(sheet *Sheet, hLag, vLag *l3lag.Lag) ([]Proposal, error) {
	var staves []image.Rectangle
	for _, sys := range sheet.Systems {
		for _, st := range sys.Staves() {
			staves = append(staves, image.Rect(st.Left, st.Top, st.Left+st.Width, st.Top+st.Height))
		}
	}

	var out []Proposal
	hLag.Read(func(v *l3lag.View) {
		o := v.Orientation()
		for _, s := range v.Sections() {
			b := s.Bounds(o)
			if b.Dy() > c.cfg.MaxLineThickness || b.Dx() < c.cfg.MinLineLength {
				continue
			}
			midY := (b.Min.Y + b.Max.Y - 1) / 2
			if !withinAnyStaff(staves, midY) {
				continue
			}
			out = append(out, Proposal{Orientation: o, Members: []l3lag.SectionID{s.ID}, Kind: "staff line"})
			tracef("%s section %d proposed as staff line %v", hLag.Name(), s.ID, b)
		}
	})
	vLag.Read(func(v *l3lag.View) {
		o := v.Orientation()
		for _, s := range v.Sections() {
			b := s.Bounds(o)
			if b.Dx() > c.cfg.MaxBarThickness {
				continue
			}
			for _, st := range staves {
				if b.Min.X < st.Min.X || b.Max.X > st.Max.X {
					continue
				}
				covered := min(b.Max.Y, st.Max.Y) - max(b.Min.Y, st.Min.Y)
				if float64(covered) >= c.cfg.MinBarHeight*float64(st.Dy()) {
					out = append(out, Proposal{Orientation: o, Members: []l3lag.SectionID{s.ID}, Accept: true, Kind: "bar"})
					tracef("%s section %d proposed as bar %v", vLag.Name(), s.ID, b)
					break
				}
			}
		}
	})
	return out, nil
}

func withinAnyStaff(staves []image.Rectangle, y int) bool {
	for _, st := range staves {
		if y >= st.Min.Y && y < st.Max.Y {
			return true
		}
	}
	return false
}
