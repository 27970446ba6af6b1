package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/sheet.skeleton/internal/config"
	"github.com/banshee-data/sheet.skeleton/internal/monitoring"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l2binarize"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l4sticks"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l5bars"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l6measures"
	"github.com/banshee-data/sheet.skeleton/internal/omr/storage/sqlite"
	"github.com/banshee-data/sheet.skeleton/internal/timeutil"
)

// Sheet is one page to analyse. Raster is modified in place when staff
// lines are removed.
type Sheet struct {
	Name    string
	Raster  *l1raster.Gray
	Scale   l1raster.Scale
	Systems []*l6measures.System
}

// Validate checks the sheet before any layer runs.
func (s *Sheet) Validate() error {
	if s.Raster == nil {
		return fmt.Errorf("sheet %q has no raster", s.Name)
	}
	if s.Scale.Interline <= 0 {
		return fmt.Errorf("sheet %q has no interline", s.Name)
	}
	bounds := image.Rect(0, 0, s.Raster.Width(), s.Raster.Height())
	seen := make(map[int]bool, len(s.Systems))
	for _, sys := range s.Systems {
		if seen[sys.ID] {
			return fmt.Errorf("sheet %q: system %d listed twice", s.Name, sys.ID)
		}
		seen[sys.ID] = true
		if err := sys.Validate(); err != nil {
			return fmt.Errorf("sheet %q: %w", s.Name, err)
		}
		box := image.Rect(sys.Left, sys.Top, sys.Left+sys.Width, sys.Top+sys.Height)
		if !box.In(bounds) {
			return fmt.Errorf("sheet %q: system %d box %v outside raster %v", s.Name, sys.ID, box, bounds)
		}
	}
	return nil
}

// Config holds the dependencies of a Pipeline.
type Config struct {
	Tuning     *config.TuningConfig // nil means all defaults
	Classifier Classifier           // Optional: defaults to a GeometricClassifier per sheet
	Store      *sqlite.Store        // Optional: persists runs, lags and measures
	Observer   l2binarize.Observer  // Optional: receives per-column binarization statistics
	Clock      timeutil.Clock       // Optional: defaults to the real clock
}

// Pipeline analyses sheets. A Pipeline holds no per-sheet state and may
// run several sheets concurrently.
type Pipeline struct {
	cfg Config
}

// NewPipeline validates the tuning and returns a Pipeline.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Tuning == nil {
		cfg.Tuning = config.EmptyTuningConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return &Pipeline{cfg: cfg}, nil
}

// Result is the outcome of one sheet.
type Result struct {
	RunID      string                      `json:"run_id,omitempty"`
	Sheet      string                      `json:"sheet"`
	Systems    []*l6measures.System        `json:"systems"`
	Alignments map[int][]*l5bars.Alignment `json:"-"`
	HLag       *l3lag.Lag                  `json:"-"`
	VLag       *l3lag.Lag                  `json:"-"`
	Bars       []*l4sticks.Stick           `json:"-"`
	Removed    int                         `json:"removed_sticks"`
	Warnings   int                         `json:"warnings"`
	Elapsed    time.Duration               `json:"-"`
}

// components are the layer objects configured for one sheet's scale.
type components struct {
	binarize   *l2binarize.Config
	lag        *l3lag.Config
	sticks     *l4sticks.Config
	aligner    *l5bars.Aligner
	assembler  *l6measures.Assembler
	classifier Classifier
}

func (p *Pipeline) components(scale l1raster.Scale) (*components, error) {
	t := p.cfg.Tuning
	c := &components{
		binarize: l2binarize.ConfigFromTuning(t),
		lag:      l3lag.ConfigFromTuning(t),
		sticks:   l4sticks.ConfigFromTuning(t),
	}
	var err error
	if c.aligner, err = l5bars.NewAligner(l5bars.ConfigFromTuning(t, scale)); err != nil {
		return nil, err
	}
	if c.assembler, err = l6measures.NewAssembler(l6measures.ConfigFromTuning(t, scale)); err != nil {
		return nil, err
	}
	c.classifier = p.cfg.Classifier
	if c.classifier == nil {
		if c.classifier, err = NewGeometricClassifier(ClassifierConfigFromTuning(t, scale)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Run analyses one sheet: binarization, horizontal and vertical lags,
// stick proposals, then bar alignments and measures per system. Systems
// are assembled concurrently, bounded by the workers setting. A failure
// aborts this sheet only. ctx is checked between stages.
func (p *Pipeline) Run(ctx context.Context, sheet *Sheet) (*Result, error) {
	if err := sheet.Validate(); err != nil {
		return nil, err
	}
	start := p.cfg.Clock.Now()
	comp, err := p.components(sheet.Scale)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
	}
	res := &Result{Sheet: sheet.Name, Systems: sheet.Systems, Alignments: make(map[int][]*l5bars.Alignment)}

	mask, err := p.binarize(sheet, comp)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if res.HLag, res.VLag, err = buildLags(mask, comp.lag); err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.applyProposals(sheet, comp, res); err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := p.assembleSystems(ctx, sheet, comp, res); err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
	}

	if p.cfg.Store != nil {
		if err := p.persist(sheet, res); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}
	res.Elapsed = p.cfg.Clock.Since(start)
	monitoring.Logf("sheet %s: %d systems, %d bars, %d sticks removed, %d warnings in %s",
		sheet.Name, len(sheet.Systems), len(res.Bars), res.Removed, res.Warnings, res.Elapsed)
	return res, nil
}

func (p *Pipeline) binarize(sheet *Sheet, comp *components) (*l2binarize.Mask, error) {
	filter, err := l2binarize.NewFilter(sheet.Raster, comp.binarize)
	if err != nil {
		return nil, err
	}
	if p.cfg.Observer != nil {
		filter.SetObserver(p.cfg.Observer)
	}
	mask, err := l2binarize.Materialize(filter)
	if err != nil {
		return nil, err
	}
	diagf("sheet %s: %d foreground pixels", sheet.Name, mask.Count())
	return mask, nil
}

// buildLags builds both lags from the same mask in parallel.
func buildLags(mask *l2binarize.Mask, cfg *l3lag.Config) (hLag, vLag *l3lag.Lag, err error) {
	var g errgroup.Group
	g.Go(func() error {
		var err error
		hLag, err = l3lag.Build("hLag", mask, l3lag.Horizontal, cfg)
		return err
	})
	g.Go(func() error {
		var err error
		vLag, err = l3lag.Build("vLag", mask, l3lag.Vertical, cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return hLag, vLag, nil
}

// applyProposals registers accepted sticks and cleans up rejected ones. A
// proposal that cannot become a stick is logged and skipped.
func (p *Pipeline) applyProposals(sheet *Sheet, comp *components, res *Result) error {
	proposals, err := comp.classifier.Classify(sheet, res.HLag, res.VLag)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	nests := map[l3lag.Orientation]*l4sticks.Nest{
		l3lag.Horizontal: l4sticks.NewNest(res.HLag),
		l3lag.Vertical:   l4sticks.NewNest(res.VLag),
	}
	reconcilers := make(map[l3lag.Orientation]*l4sticks.Reconciler, 2)
	for o, nest := range nests {
		r, err := l4sticks.NewReconciler(nest, sheet.Raster, comp.sticks)
		if err != nil {
			return err
		}
		reconcilers[o] = r
	}

	for _, prop := range proposals {
		nest, ok := nests[prop.Orientation]
		if !ok {
			return fmt.Errorf("proposal with unknown orientation %s", prop.Orientation)
		}
		st, err := nest.Add(prop.Members)
		if err != nil {
			opsf("sheet %s: %s proposal %v dropped: %v", sheet.Name, prop.Kind, prop.Members, err)
			res.Warnings++
			continue
		}
		if prop.Accept {
			if err := nest.Register(st.ID); err != nil {
				return err
			}
			continue
		}
		cleaned, err := reconcilers[prop.Orientation].Cleanup(st)
		if err != nil {
			return err
		}
		res.Removed++
		res.Warnings += cleaned.Skipped
	}

	res.Bars = nests[l3lag.Vertical].Sticks(l4sticks.Registered)
	diagf("sheet %s: %d proposals, %d bars, %d sticks removed", sheet.Name, len(proposals), len(res.Bars), res.Removed)
	return nil
}

// assembleSystems aligns bars and builds measures for every system. Each
// goroutine owns one system; bars are only read.
func (p *Pipeline) assembleSystems(ctx context.Context, sheet *Sheet, comp *components, res *Result) error {
	aligns := make([][]*l5bars.Alignment, len(sheet.Systems))
	incomplete := make([]int, len(sheet.Systems))

	g, gctx := errgroup.WithContext(ctx)
	if w := p.cfg.Tuning.GetWorkers(); w > 0 {
		g.SetLimit(w)
	}
	for i, sys := range sheet.Systems {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			al, err := comp.aligner.Align(staffCandidates(sys, res.Bars))
			if err != nil {
				return fmt.Errorf("system %d: %w", sys.ID, err)
			}
			if err := comp.assembler.Assemble(sys, al); err != nil {
				return err
			}
			for _, a := range al {
				if !a.Complete() {
					incomplete[i]++
				}
			}
			aligns[i] = al
			tracef("sheet %s system %d: %d alignments", sheet.Name, sys.ID, len(al))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, sys := range sheet.Systems {
		res.Alignments[sys.ID] = aligns[i]
		res.Warnings += incomplete[i]
	}
	return nil
}

// staffCandidates lists, for each staff of sys top to bottom, the bars
// whose box crosses the staff's middle line within the staff's extent.
func staffCandidates(sys *l6measures.System, bars []*l4sticks.Stick) []l5bars.StaffCandidates {
	staves := sys.Staves()
	out := make([]l5bars.StaffCandidates, len(staves))
	for i, st := range staves {
		midY := st.MidY()
		out[i] = l5bars.StaffCandidates{StaffID: i, MidY: midY}
		for _, bar := range bars {
			b := bar.Bounds()
			if float64(b.Min.Y) > midY || float64(b.Max.Y) <= midY {
				continue
			}
			if b.Min.X < st.Left || b.Max.X > st.Left+st.Width {
				continue
			}
			out[i].Sticks = append(out[i].Sticks, bar)
		}
	}
	return out
}

func (p *Pipeline) persist(sheet *Sheet, res *Result) error {
	params, err := json.Marshal(p.cfg.Tuning)
	if err != nil {
		return fmt.Errorf("marshal tuning: %w", err)
	}
	run := &sqlite.Run{
		Sheet:      sheet.Name,
		Width:      sheet.Raster.Width(),
		Height:     sheet.Raster.Height(),
		Interline:  sheet.Scale.Interline,
		ParamsJSON: params,
		Warnings:   res.Warnings,
	}
	if err := p.cfg.Store.InsertRun(run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, lag := range []*l3lag.Lag{res.HLag, res.VLag} {
		if err := p.cfg.Store.InsertLagSnapshot(run.RunID, lag); err != nil {
			return fmt.Errorf("insert lag snapshot: %w", err)
		}
	}
	for _, sys := range sheet.Systems {
		if err := p.cfg.Store.InsertSystem(run.RunID, sys); err != nil {
			return err
		}
	}
	res.RunID = run.RunID
	diagf("sheet %s persisted as run %s", sheet.Name, run.RunID)
	return nil
}
