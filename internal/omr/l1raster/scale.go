package l1raster

import (
	"fmt"
	"math"
)

// Fraction is a length expressed in interline units.
type Fraction float64

// Scale converts logical interline fractions into pixel distances. The
// interline is the vertical distance between two consecutive staff lines.
type Scale struct {
	Interline int // pixels
}

// NewScale validates the interline and returns a Scale.
func NewScale(interline int) (Scale, error) {
	if interline <= 0 {
		return Scale{}, fmt.Errorf("interline must be positive, got %d", interline)
	}
	return Scale{Interline: interline}, nil
}

// ToPixels rounds a fraction of interline to the nearest pixel count.
func (s Scale) ToPixels(f Fraction) int {
	return int(math.Round(s.ToPixelsDouble(f)))
}

// ToPixelsDouble converts a fraction of interline without rounding.
func (s Scale) ToPixelsDouble(f Fraction) float64 {
	return float64(f) * float64(s.Interline)
}

// ToFraction converts a pixel distance back into interline units.
func (s Scale) ToFraction(pixels float64) Fraction {
	if s.Interline == 0 {
		return 0
	}
	return Fraction(pixels / float64(s.Interline))
}
