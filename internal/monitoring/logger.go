package monitoring

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logf is the process-wide summary logger used by the CLI and the pipeline.
// It defaults to log.Printf but may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the summary logger. Passing nil sets a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// LogWriters holds the io.Writers for the ops, diag and trace streams of
// the layer packages. A nil writer disables the stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// Level selects how many streams are enabled.
type Level int

const (
	LevelOff Level = iota
	LevelOps
	LevelDiag
	LevelTrace
)

// ParseLevel maps "off", "ops", "diag" or "trace" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return LevelOff, nil
	case "ops":
		return LevelOps, nil
	case "diag":
		return LevelDiag, nil
	case "trace":
		return LevelTrace, nil
	default:
		return LevelOff, fmt.Errorf("unknown log level %q (want off, ops, diag or trace)", s)
	}
}

// Writers routes every stream up to level to w.
func (l Level) Writers(w io.Writer) LogWriters {
	var lw LogWriters
	if l >= LevelOps {
		lw.Ops = w
	}
	if l >= LevelDiag {
		lw.Diag = w
	}
	if l >= LevelTrace {
		lw.Trace = w
	}
	return lw
}
