// Package pipeline runs one sheet through the layers of the sheet model.
//
// This package is the composition root: it imports from the layer packages
// (l1raster through l6measures) and storage, but none of those packages
// import pipeline/. It does not own recognition logic, it sequences the
// layers and hands bar and staff line proposals to them.
package pipeline
