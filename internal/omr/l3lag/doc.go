// Package l3lag owns Layer 3 (Run graph) of the sheet data model.
//
// Responsibilities: extraction of foreground runs per scan line, chaining
// of overlapping runs into sections, and the directed adjacency graph of
// sections (the lag) with its single-writer mutation API and snapshots.
// Key types: Run, Section, Lag, View, Tx.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
// No SQL/database code is allowed in this package.
package l3lag
