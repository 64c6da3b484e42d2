package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned by Resolve. Callers can match them with errors.Is;
// loader wraps them with the source file path.
var (
	ErrNoColumns    = errors.New("schema: header has no columns")
	ErrNoReplicates = errors.New("schema: no replicate columns")
)

// dayCandidates are the header names recognised as the day axis, in
// preference order.
var dayCandidates = []string{"Day", "ti"}

// Overrides selects columns explicitly instead of header sniffing. A column
// reference is either an exact header name (case-insensitive) or a 1-based
// index written "#N". Zero values mean "sniff".
type Overrides struct {
	DayColumn        string
	ReplicateColumns []string
}

// Layout maps a header row to the columns the analysis reads.
type Layout struct {
	DayIndex       int
	DayName        string
	ReplicateIndex []int
	ReplicateName  []string
}

// Resolve determines the day-axis column and the replicate columns for the
// given header row. Explicit overrides win; otherwise the day axis is the
// first "Day"/"ti" header or column one, and replicates are the "R"-prefixed
// or "Rep"-containing headers, or every remaining column when none match.
func Resolve(header []string, ov Overrides) (Layout, error) {
	if len(header) == 0 {
		return Layout{}, ErrNoColumns
	}
	cleaned := make([]string, len(header))
	for i, h := range header {
		cleaned[i] = cleanHeader(h)
	}

	dayIdx, err := resolveDay(cleaned, ov.DayColumn)
	if err != nil {
		return Layout{}, err
	}

	repIdx, err := resolveReplicates(cleaned, dayIdx, ov.ReplicateColumns)
	if err != nil {
		return Layout{}, err
	}

	lay := Layout{
		DayIndex:       dayIdx,
		DayName:        columnName(cleaned, dayIdx),
		ReplicateIndex: repIdx,
		ReplicateName:  make([]string, len(repIdx)),
	}
	for i, idx := range repIdx {
		lay.ReplicateName[i] = columnName(cleaned, idx)
	}
	return lay, nil
}

func resolveDay(header []string, override string) (int, error) {
	if override != "" {
		idx, err := matchColumn(header, override)
		if err != nil {
			return 0, fmt.Errorf("day column: %w", err)
		}
		return idx, nil
	}
	for _, cand := range dayCandidates {
		if idx := findColumn(header, cand); idx >= 0 {
			return idx, nil
		}
	}
	// No recognised day header: the first column carries the axis.
	return 0, nil
}

func resolveReplicates(header []string, dayIdx int, overrides []string) ([]int, error) {
	if len(overrides) > 0 {
		idxs := make([]int, 0, len(overrides))
		seen := make(map[int]bool, len(overrides))
		for _, ref := range overrides {
			idx, err := matchColumn(header, ref)
			if err != nil {
				return nil, fmt.Errorf("replicate column: %w", err)
			}
			if idx == dayIdx {
				return nil, fmt.Errorf("replicate column %q is the day column", ref)
			}
			if seen[idx] {
				continue
			}
			seen[idx] = true
			idxs = append(idxs, idx)
		}
		return idxs, nil
	}

	var idxs []int
	for i, name := range header {
		if i == dayIdx {
			continue
		}
		if isReplicateHeader(name) {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		// Headerless or unconventional tables: every non-day column counts.
		for i := range header {
			if i != dayIdx {
				idxs = append(idxs, i)
			}
		}
	}
	if len(idxs) == 0 {
		return nil, ErrNoReplicates
	}
	return idxs, nil
}

// isReplicateHeader reports whether a header names a replicate series under
// the R1/R2/... or Rep-A/Replicate 1 conventions.
func isReplicateHeader(name string) bool {
	if name == "" {
		return false
	}
	upper := strings.ToUpper(name)
	return strings.HasPrefix(upper, "R") || strings.Contains(upper, "REP")
}

// matchColumn resolves an explicit column reference: first an exact
// case-insensitive header match, then a "#N" 1-based index.
func matchColumn(header []string, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if idx := findColumn(header, ref); idx >= 0 {
		return idx, nil
	}
	if strings.HasPrefix(ref, "#") {
		idx, err := parseColumnIndex(ref[1:], len(header))
		if err != nil {
			return 0, err
		}
		return idx, nil
	}
	return 0, fmt.Errorf("column %q not found in header", ref)
}

// parseColumnIndex converts a 1-based index string to a 0-based offset.
func parseColumnIndex(s string, width int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid column index %q", "#"+s)
	}
	if n < 1 {
		return 0, fmt.Errorf("column indices are 1-based: %q", "#"+s)
	}
	if n > width {
		return 0, fmt.Errorf("column index #%d is out of range for %d columns", n, width)
	}
	return n - 1, nil
}

// findColumn returns the index of the first header equal to name under
// case folding, or -1.
func findColumn(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// columnName returns the header text for an index, or "#N" when the cell
// is blank.
func columnName(header []string, idx int) string {
	if header[idx] != "" {
		return header[idx]
	}
	return fmt.Sprintf("#%d", idx+1)
}

// cleanHeader trims whitespace and a UTF-8 BOM from a header cell.
func cleanHeader(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "﻿"))
}
