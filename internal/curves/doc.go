// Package curves derives germination time-course series from an observation
// table: per-replicate cumulative and per-day counts, plus the across-replicate
// mean and population standard deviation of both families. The output feeds
// report writers, chart rendering, and the live API snapshot.
package curves
