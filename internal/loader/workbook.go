package loader

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/Montcharles/germitrack/internal/schema"
)

// loadWorkbook reads every sheet of an .xlsx workbook as its own treatment.
// Sheets without data rows are skipped with a warning.
func loadWorkbook(path string, ov schema.Overrides) ([]Input, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	var inputs []Input
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("loader: %s: read sheet %q: %w", path, sheet, err)
		}
		table, err := parseRows(rows, ov)
		if err != nil {
			if errors.Is(err, errNoData) {
				slog.Warn("skipping sheet without data rows", "file", path, "sheet", sheet)
				continue
			}
			return nil, fmt.Errorf("loader: %s: sheet %q: %w", path, sheet, err)
		}
		inputs = append(inputs, Input{Treatment: sheet, Table: table})
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("loader: %s: no sheets with data rows", path)
	}
	return inputs, nil
}
