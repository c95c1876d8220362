// Package tracedb journals crash sweeps in SQLite so failing power-loss
// points can be inspected after the process exits.
//
// Each sweep is one row in sweep_runs. Each failing budget is a row in
// sweep_failures holding the message and the zstd compressed flash image
// left behind by the failed recovery.
package tracedb
