// Package batch runs the analysis pipeline over many treatments at once.
// Run fans jobs out to a bounded worker pool and collects per-treatment
// outcomes in input order; one malformed treatment never aborts the rest.
// Watch drives the daemon's re-analysis loop from filesystem events on the
// input files.
package batch
