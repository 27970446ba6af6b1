// Package l4sticks owns Layer 4 (Sticks) of the sheet data model.
//
// Responsibilities: sticks (connected sets of lag sections with a fitted
// line), their registry per lag, and the reconciler that repairs the lag
// when a stick is rejected: crossing objects are extended through the gap,
// thin fringes are absorbed, and the raster is erased and patched.
// Key types: Line, Stick, Nest, Reconciler.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4sticks
