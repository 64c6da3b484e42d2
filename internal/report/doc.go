// Package report writes the analysis artifacts: per-treatment results and
// curve tables as CSV, the same tables as .xlsx workbooks, a combined
// workbook with one results sheet per treatment, and PNG chart panels.
// Column names and file names follow the established GermiTrack_* layout so
// downstream spreadsheets keep working.
package report
