// Package kinetics derives germination statistics from replicate count series.
//
// stats.go provides the pure formula helpers: weighted mean germination time,
// time variance with Bessel correction, Maguire speed index, Shannon-style
// uncertainty, combinatorial synchrony, and the interpolated time-to-fraction
// calculation.
//
// engine.go provides Engine, which applies the full formula pipeline to every
// replicate of an ObservationTable and publishes rounded GerminationRecord
// values. Replicates with zero total germination resolve every statistic to 0
// rather than erroring, so downstream aggregation and export never encounter
// NaN or infinities. Structurally invalid tables (no rows, no replicate
// columns, length mismatches, negative counts) fail with DataShapeError.
//
// Rounding: 2 decimals for percentage/time/variance fields, 3 for the
// uncertainty and synchrony indexes, 4 for the mean germination rate.
package kinetics
