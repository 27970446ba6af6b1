// Command omrscan analyses a scanned page: it binarizes the image, builds
// the run graphs, removes staff lines and prints the measures of every
// system of the given layout as JSON.
//
//	omrscan -image page.png -layout layout.json [-db omr.db] [-plot-dir plots]
//	omrscan migrate [-db omr.db] <up|down|status|version N|force N|help>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/banshee-data/sheet.skeleton/internal/config"
	"github.com/banshee-data/sheet.skeleton/internal/db"
	"github.com/banshee-data/sheet.skeleton/internal/fsutil"
	"github.com/banshee-data/sheet.skeleton/internal/monitoring"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l2binarize"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l3lag"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l4sticks"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l5bars"
	"github.com/banshee-data/sheet.skeleton/internal/omr/l6measures"
	"github.com/banshee-data/sheet.skeleton/internal/omr/monitor"
	"github.com/banshee-data/sheet.skeleton/internal/omr/pipeline"
	"github.com/banshee-data/sheet.skeleton/internal/omr/storage/sqlite"
	"github.com/banshee-data/sheet.skeleton/internal/version"
)

const defaultDBPath = "omr.db"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Printf("omrscan: %v", err)
		os.Exit(1)
	}
}

// options are the parsed command line flags.
type options struct {
	image     string
	layout    string
	config    string
	dbPath    string
	interline int
	plotDir   string
	out       string
	cleaned   string
	logLevel  string
	version   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fset := flag.NewFlagSet("omrscan", flag.ContinueOnError)
	fset.SetOutput(stderr)
	o := &options{}
	fset.StringVar(&o.image, "image", "", "page image (PNG, JPEG, GIF, TIFF or BMP)")
	fset.StringVar(&o.layout, "layout", "", "JSON system layout of the page")
	fset.StringVar(&o.config, "config", "", "tuning JSON file (defaults apply to omitted fields)")
	fset.StringVar(&o.dbPath, "db", "", "SQLite database to record the run in (empty disables)")
	fset.IntVar(&o.interline, "interline", 0, "interline in pixels (0 reads the layout or estimates it from staff heights)")
	fset.StringVar(&o.plotDir, "plot-dir", "", "directory for binarization profile plots (empty disables)")
	fset.StringVar(&o.out, "out", "", "write the measure tree JSON to this file instead of stdout")
	fset.StringVar(&o.cleaned, "cleaned", "", "write the page without its staff lines to this PNG file")
	fset.StringVar(&o.logLevel, "log-level", "ops", "layer logging: off, ops, diag or trace")
	fset.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fset.Args(), " "))
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(args[1:], stdout, stderr)
	}

	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, version.String("omrscan"))
		return nil
	}
	if o.image == "" || o.layout == "" {
		return fmt.Errorf("-image and -layout are required")
	}

	level, err := monitoring.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	setLogWriters(level.Writers(stderr))
	monitoring.SetLogger(log.New(stderr, "", log.LstdFlags).Printf)

	tuning := config.EmptyTuningConfig()
	if o.config != "" {
		if tuning, err = config.LoadTuningConfig(o.config); err != nil {
			return err
		}
	}

	fs := fsutil.OSFileSystem{}
	raster, err := l1raster.Load(fs, o.image)
	if err != nil {
		return err
	}
	layout, err := pipeline.LoadLayout(fs, o.layout)
	if err != nil {
		return err
	}
	scale, err := resolveScale(o.interline, layout)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(o.image), filepath.Ext(o.image))
	cfg := pipeline.Config{Tuning: tuning}

	if o.dbPath != "" {
		database, err := db.NewDB(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		cfg.Store = sqlite.NewStore(database.DB)
	}

	var plotter *monitor.ProfilePlotter
	if o.plotDir != "" {
		plotter = monitor.NewProfilePlotter(name)
		cfg.Observer = plotter
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}
	res, err := p.Run(ctx, &pipeline.Sheet{
		Name:    name,
		Raster:  raster,
		Scale:   scale,
		Systems: layout.Systems,
	})
	if err != nil {
		return err
	}

	if plotter != nil {
		plotter.Stop()
		paths, err := plotter.GeneratePlots(fs, o.plotDir)
		if err != nil {
			return err
		}
		for _, path := range paths {
			monitoring.Logf("wrote %s", path)
		}
	}
	if o.cleaned != "" {
		if err := l1raster.Save(fs, o.cleaned, raster); err != nil {
			return err
		}
	}
	return writeResult(fs, o.out, stdout, res)
}

// resolveScale prefers the flag, then the layout's interline, then an
// estimate from the staff heights.
func resolveScale(flagInterline int, layout *pipeline.Layout) (l1raster.Scale, error) {
	switch {
	case flagInterline != 0:
		return l1raster.NewScale(flagInterline)
	case layout.Interline > 0:
		return l1raster.NewScale(layout.Interline)
	default:
		return pipeline.EstimateScale(layout.Systems)
	}
}

func writeResult(fs fsutil.FileSystem, path string, stdout io.Writer, res *pipeline.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	w, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func runMigrate(args []string, stdout, stderr io.Writer) error {
	fset := flag.NewFlagSet("omrscan migrate", flag.ContinueOnError)
	fset.SetOutput(stderr)
	dbPath := fset.String("db", defaultDBPath, "SQLite database to migrate")
	if err := fset.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(fset.Args(), *dbPath, stdout)
}

// setLogWriters routes the ops, diag and trace streams of every layer.
func setLogWriters(w monitoring.LogWriters) {
	l2binarize.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l3lag.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l4sticks.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l5bars.SetLogWriters(w.Ops, w.Diag, w.Trace)
	l6measures.SetLogWriters(w.Ops, w.Diag, w.Trace)
	pipeline.SetLogWriters(w.Ops, w.Diag, w.Trace)
}
