// Package testutil provides shared test utilities and fixtures.
//
// This package centralises raster fixtures and assertion helpers used by
// the layer packages' tests.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// RasterFromRows builds a raster from an ASCII drawing: '#' is ink, '.' is
// paper. Every row must have the same length.
func RasterFromRows(t testing.TB, rows ...string) *l1raster.Gray {
	t.Helper()
	if len(rows) == 0 {
		return l1raster.NewGray(0, 0)
	}
	w := len(rows[0])
	g := l1raster.NewGray(w, len(rows))
	for y, row := range rows {
		if len(row) != w {
			t.Fatalf("row %d has length %d, want %d", y, len(row), w)
		}
		for x := 0; x < w; x++ {
			switch row[x] {
			case '#':
				g.SetPixel(x, y, l1raster.Foreground)
			case '.':
			default:
				t.Fatalf("unexpected character %q at (%d,%d)", row[x], x, y)
			}
		}
	}
	return g
}

// RowsFromRaster renders r back to ASCII: '#' for Foreground, '.' for
// Background, '+' for the patch level and '?' for anything else.
func RowsFromRaster(r l1raster.Raster, patch uint8) []string {
	rows := make([]string, r.Height())
	line := make([]byte, r.Width())
	for y := range rows {
		for x := range line {
			switch r.Pixel(x, y) {
			case l1raster.Foreground:
				line[x] = '#'
			case l1raster.Background:
				line[x] = '.'
			case patch:
				line[x] = '+'
			default:
				line[x] = '?'
			}
		}
		rows[y] = string(line)
	}
	return rows
}

// NoisyRaster returns a deterministic pseudo-random raster.
func NoisyRaster(seed int64, width, height int) *l1raster.Gray {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = uint8(rng.Intn(256))
	}
	g, _ := l1raster.FromPixels(width, height, pix)
	return g
}

// FillRect paints the inclusive rectangle [x0,x1]x[y0,y1] with v.
func FillRect(g *l1raster.Gray, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			g.SetPixel(x, y, v)
		}
	}
}
