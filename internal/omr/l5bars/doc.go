// Package l5bars owns Layer 5 (Bar alignments) of the sheet data model.
//
// Responsibilities: intersection of bar line candidates with the staves of
// a system and their grouping into alignments that run across consecutive
// staves, with an explicit empty slot where a staff has no bar.
// Key types: Intersection, Alignment, Aligner.
//
// Dependency rule: L5 may depend on L1-L4, but never on L6.
// No SQL/database code is allowed in this package.
package l5bars
