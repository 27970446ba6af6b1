// Package l1raster owns Layer 1 (Raster) of the sheet data model.
//
// Responsibilities: the greyscale raster abstraction consumed by the
// binarizer, image decoding from scanned page files, and the Scale that
// converts interline fractions into pixel counts.
// Key types: Raster, Writable, Gray, Scale.
//
// Dependency rule: L1 depends on nothing else in internal/omr.
package l1raster
