package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Montcharles/germitrack/internal/schema"
	"github.com/Montcharles/germitrack/pkg/types"
)

// DelimitedTreatment is the treatment name assigned to single-table inputs,
// which carry no sheet name of their own.
const DelimitedTreatment = "Data"

// errNoData marks a table with a header but no usable observation rows.
var errNoData = errors.New("no data rows")

// Input is one treatment's worth of raw observations.
type Input struct {
	Treatment string
	Table     types.ObservationTable
}

// Load reads every treatment from the file at path. The format is chosen by
// extension: .xlsx workbooks carry one treatment per sheet, .csv is
// comma-separated, .txt and .tsv are tab-separated.
func Load(path string, ov schema.Overrides) ([]Input, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return loadWorkbook(path, ov)
	case ".csv":
		return loadDelimited(path, ',', ov)
	case ".txt", ".tsv":
		return loadDelimited(path, '\t', ov)
	default:
		return nil, fmt.Errorf("loader: unsupported input format %q", ext)
	}
}

func loadDelimited(path string, comma rune, ov schema.Overrides) ([]Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: parse %s: %w", path, err)
	}

	table, err := parseRows(rows, ov)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return []Input{{Treatment: DelimitedTreatment, Table: table}}, nil
}

// parseRows turns a raw row grid into an observation table. The first row is
// the header; rows whose day cell does not parse are dropped, count cells
// that do not parse are zero.
func parseRows(rows [][]string, ov schema.Overrides) (types.ObservationTable, error) {
	if len(rows) == 0 {
		return types.ObservationTable{}, errNoData
	}

	lay, err := schema.Resolve(rows[0], ov)
	if err != nil {
		return types.ObservationTable{}, err
	}

	table := types.ObservationTable{
		Replicates: make([]types.ReplicateSeries, len(lay.ReplicateIndex)),
	}
	for i, name := range lay.ReplicateName {
		table.Replicates[i].ID = name
	}

	dropped := 0
	for _, row := range rows[1:] {
		day, ok := cellNumber(row, lay.DayIndex)
		if !ok {
			dropped++
			continue
		}
		table.Days = append(table.Days, day)
		for i, idx := range lay.ReplicateIndex {
			v, ok := cellNumber(row, idx)
			if !ok {
				v = 0
			}
			table.Replicates[i].Counts = append(table.Replicates[i].Counts, v)
		}
	}
	if dropped > 0 {
		slog.Warn("dropped rows with non-numeric day values", "rows", dropped)
	}
	if len(table.Days) == 0 {
		return types.ObservationTable{}, errNoData
	}
	return table, nil
}

// cellNumber parses row[idx] as a finite float. Missing cells, empty cells,
// and non-numeric text all report !ok.
func cellNumber(row []string, idx int) (float64, bool) {
	if idx >= len(row) {
		return 0, false
	}
	s := strings.TrimSpace(row[idx])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
