package l1raster

import (
	"fmt"
	"image"
	"image/color"
	"sync"
)

const (
	// Foreground is the intensity of a fully black (ink) pixel.
	Foreground uint8 = 0
	// Background is the intensity of a fully white (paper) pixel.
	Background uint8 = 255
)

// Raster is a read-only 2D grid of intensities in [0,255].
type Raster interface {
	Width() int
	Height() int
	// Pixel returns the intensity at (x, y). Coordinates must be in bounds.
	Pixel(x, y int) uint8
}

// Writable is a Raster whose pixels may be rewritten, e.g. when a rejected
// stick is erased and its crossing objects are patched.
type Writable interface {
	Raster
	SetPixel(x, y int, v uint8)
}

// Gray is the concrete raster used throughout the pipeline. It is shared by
// all systems of a sheet, so every access goes through mu.
type Gray struct {
	mu     sync.RWMutex
	width  int
	height int
	pix    []uint8 // row-major, len = width*height
}

// NewGray allocates a raster filled with Background.
func NewGray(width, height int) *Gray {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = Background
	}
	return &Gray{width: width, height: height, pix: pix}
}

// FromPixels wraps a row-major intensity slice. The slice is copied.
func FromPixels(width, height int, pix []uint8) (*Gray, error) {
	if width < 0 || height < 0 || len(pix) != width*height {
		return nil, fmt.Errorf("pixel slice length %d does not match %dx%d", len(pix), width, height)
	}
	g := &Gray{width: width, height: height, pix: make([]uint8, len(pix))}
	copy(g.pix, pix)
	return g, nil
}

// FromImage converts any decoded image into a Gray raster using the
// standard luminance conversion.
func FromImage(img image.Image) *Gray {
	b := img.Bounds()
	g := &Gray{width: b.Dx(), height: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}
	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < g.height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(g.pix[y*g.width:(y+1)*g.width], src.Pix[off:off+g.width])
		}
		return g
	}
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			g.pix[y*g.width+x] = c.Y
		}
	}
	return g
}

// Width returns the raster width in pixels.
func (g *Gray) Width() int { return g.width }

// Height returns the raster height in pixels.
func (g *Gray) Height() int { return g.height }

// Pixel returns the intensity at (x, y).
func (g *Gray) Pixel(x, y int) uint8 {
	g.mu.RLock()
	v := g.pix[y*g.width+x]
	g.mu.RUnlock()
	return v
}

// SetPixel overwrites the intensity at (x, y). Out-of-bounds writes are
// ignored: patches extrapolated near the page border may overshoot it.
func (g *Gray) SetPixel(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return
	}
	g.mu.Lock()
	g.pix[y*g.width+x] = v
	g.mu.Unlock()
}

// Column copies column x into dst (len >= Height) under a single read lock.
func (g *Gray) Column(x int, dst []uint8) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for y := 0; y < g.height; y++ {
		dst[y] = g.pix[y*g.width+x]
	}
}

// Image returns a copy of the raster as an *image.Gray.
func (g *Gray) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.width, g.height))
	g.mu.RLock()
	copy(img.Pix, g.pix)
	g.mu.RUnlock()
	return img
}

// columnReader is satisfied by rasters that can hand out a whole column at
// once, which saves one lock round-trip per pixel.
type columnReader interface {
	Column(x int, dst []uint8)
}

// ReadColumn fills dst with column x of r, using the fast path when r
// supports it.
func ReadColumn(r Raster, x int, dst []uint8) {
	if cr, ok := r.(columnReader); ok {
		cr.Column(x, dst)
		return
	}
	for y := 0; y < r.Height(); y++ {
		dst[y] = r.Pixel(x, y)
	}
}
