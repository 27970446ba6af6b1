// Package l6measures owns Layer 6 (Measures) of the sheet data model.
//
// Responsibilities: the System, Part, Staff, Measure and Barline tree,
// allocation of one measure per part for each bar alignment, and the
// boundary passes that merge double bars and reclassify the bars at the
// left and right edges of a system.
// Key types: System, Part, Staff, Measure, Barline, Assembler.
//
// Dependency rule: L6 may depend on L1-L5.
// No SQL/database code is allowed in this package.
package l6measures
