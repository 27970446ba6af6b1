// Package l2binarize owns Layer 2 (Binarization) of the sheet data model.
//
// Responsibilities: adaptive local thresholding of a greyscale raster.
// A Tile keeps sliding-window sums and sums of squares for the columns
// around the current one so that each pixel is classified against the
// mean and standard deviation of its neighbourhood.
// Key types: Tile, Filter, Mask, Config.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2binarize
