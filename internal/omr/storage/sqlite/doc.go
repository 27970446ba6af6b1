// Package sqlite contains the SQLite repository for analysis runs.
//
// Runs, lag snapshots and measure trees are written here rather than in the
// omr layer packages (l1-l6), which stay free of SQL. The schema lives in
// internal/db/migrations.
package sqlite
