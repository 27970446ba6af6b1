package l2binarize

import (
	"fmt"
	"math/bits"

	"github.com/banshee-data/sheet.skeleton/internal/omr/l1raster"
)

// Mask is a packed foreground bitmap. Unlike a Filter it can be read in any
// order, which the horizontal lag builder needs.
type Mask struct {
	width  int
	height int
	words  []uint64 // row-major bits
}

// NewMask returns an all-background mask.
func NewMask(width, height int) *Mask {
	n := width * height
	return &Mask{width: width, height: height, words: make([]uint64, (n+63)/64)}
}

// Materialize drains src column by column into a Mask.
func Materialize(src ForegroundSource) (*Mask, error) {
	m := NewMask(src.Width(), src.Height())
	col := make([]bool, src.Height())
	for x := 0; x < m.width; x++ {
		if err := src.Column(x, col); err != nil {
			return nil, fmt.Errorf("binarize column %d: %w", x, err)
		}
		for y, fg := range col {
			if fg {
				m.Set(x, y, true)
			}
		}
	}
	return m, nil
}

// Binarize classifies every pixel of r with a fresh Filter.
func Binarize(r l1raster.Raster, cfg *Config) (*Mask, error) {
	f, err := NewFilter(r, cfg)
	if err != nil {
		return nil, err
	}
	m, err := Materialize(f)
	if err != nil {
		return nil, err
	}
	diagf("binarized %dx%d: %d foreground pixels", m.width, m.height, m.Count())
	return m, nil
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// Get reports whether (x, y) is foreground. Out-of-bounds reads are
// background.
func (m *Mask) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	i := y*m.width + x
	return m.words[i>>6]&(1<<(uint(i)&63)) != 0
}

// Set marks (x, y) as foreground or background.
func (m *Mask) Set(x, y int, fg bool) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	i := y*m.width + x
	if fg {
		m.words[i>>6] |= 1 << (uint(i) & 63)
	} else {
		m.words[i>>6] &^= 1 << (uint(i) & 63)
	}
}

// Column implements ForegroundSource. Any column order is accepted.
func (m *Mask) Column(x int, dst []bool) error {
	if x < 0 || x >= m.width {
		return fmt.Errorf("column %d outside mask width %d", x, m.width)
	}
	for y := 0; y < m.height; y++ {
		dst[y] = m.Get(x, y)
	}
	return nil
}

// Row fills dst (len >= Width) with row y.
func (m *Mask) Row(y int, dst []bool) {
	for x := 0; x < m.width; x++ {
		dst[x] = m.Get(x, y)
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, w := range m.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Equal reports whether both masks have the same size and pixels.
func (m *Mask) Equal(o *Mask) bool {
	if m.width != o.width || m.height != o.height {
		return false
	}
	for i := range m.words {
		if m.words[i] != o.words[i] {
			return false
		}
	}
	return true
}

// Raster renders the mask as Foreground/Background intensities.
func (m *Mask) Raster() *l1raster.Gray {
	g := l1raster.NewGray(m.width, m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.Get(x, y) {
				g.SetPixel(x, y, l1raster.Foreground)
			}
		}
	}
	return g
}
