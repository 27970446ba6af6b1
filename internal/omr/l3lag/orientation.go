package l3lag

import "fmt"

// Orientation tells along which axis the runs of a lag extend.
type Orientation uint8

const (
	// Horizontal runs extend along x; scan lines are rows.
	Horizontal Orientation = iota
	// Vertical runs extend along y; scan lines are columns.
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("Orientation(%d)", uint8(o))
	}
}

// Absolute maps an oriented (pos, coord) pair to raster (x, y).
func (o Orientation) Absolute(pos, coord int) (x, y int) {
	if o == Vertical {
		return pos, coord
	}
	return coord, pos
}

// Oriented maps raster (x, y) to an oriented (pos, coord) pair.
func (o Orientation) Oriented(x, y int) (pos, coord int) {
	if o == Vertical {
		return x, y
	}
	return y, x
}

// Dims returns the number of scan lines and the length of each line for a
// raster of the given size.
func (o Orientation) Dims(width, height int) (lines, length int) {
	if o == Vertical {
		return width, height
	}
	return height, width
}
