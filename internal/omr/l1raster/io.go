package l1raster

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/banshee-data/sheet.skeleton/internal/fsutil"
)

// Decode reads a scanned page in any registered format (PNG, JPEG, GIF,
// TIFF, BMP) and converts it to a Gray raster.
func Decode(r io.Reader) (*Gray, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), format, nil
}

// Load opens and decodes the image file at path.
func Load(fs fsutil.FileSystem, path string) (*Gray, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Save writes the raster as a PNG file, typically the cleaned page after
// stick reconciliation.
func Save(fs fsutil.FileSystem, path string, g *Gray) error {
	w, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(w, g.Image()); err != nil {
		w.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return w.Close()
}
