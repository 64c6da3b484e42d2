// Package loader reads germination observation tables from disk. Workbooks
// (.xlsx) yield one treatment per sheet; delimited files (.csv comma,
// .txt/.tsv tab) yield a single treatment named "Data". Header columns are
// resolved through internal/schema; unparseable day cells drop the row,
// unparseable or missing count cells become 0.
package loader
