// Package schema resolves raw table headers to a column layout: which column
// is the day axis and which columns are replicate count series.
//
// Resolution is a pure function of the header row plus optional explicit
// overrides, so the numeric engine never depends on header-naming heuristics.
// Heuristics: the day axis is the first header matching "Day" or "ti"
// (case-insensitive), falling back to the first column; replicates are the
// headers starting with "R" or containing "Rep", falling back to every column
// except the day axis. Overrides accept an exact header name or a 1-based
// "#N" index.
package schema
