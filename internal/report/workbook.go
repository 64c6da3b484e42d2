package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Montcharles/germitrack/pkg/types"
)

// maxSheetNameLen is the workbook format's hard limit.
const maxSheetNameLen = 31

// WriteCurvesWorkbook writes a treatment's curve dataset as a single-sheet
// workbook at path.
func WriteCurvesWorkbook(path, treatment string, cs *types.CurveSet) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetSafe(treatment)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("report: name sheet: %w", err)
	}

	rows := [][]interface{}{toCells(curveColumns(cs))}
	for t := range cs.Days {
		row := make([]interface{}, 0, 3+2*len(cs.Cumulative)+2)
		row = append(row, cs.Days[t])
		for _, s := range cs.Cumulative {
			row = append(row, s.Counts[t])
		}
		row = append(row, cs.MeanCumulative[t], cs.StdCumulative[t])
		for _, s := range cs.Daily {
			row = append(row, s.Counts[t])
		}
		row = append(row, cs.MeanDaily[t], cs.StdDaily[t])
		rows = append(rows, row)
	}
	if err := writeSheetRows(f, sheet, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

// WriteCompleteWorkbook writes the combined workbook: one results sheet per
// treatment, named {treatment}_Results within the sheet-name limit.
func WriteCompleteWorkbook(path string, results []*types.TreatmentResult) error {
	if len(results) == 0 {
		return fmt.Errorf("report: no results to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	seen := make(map[string]int, len(results))
	for i, res := range results {
		sheet := uniqueSheet(seen, sheetSafe(res.Treatment+"_Results"))
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("report: name sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("report: add sheet %q: %w", sheet, err)
			}
		}

		rows := [][]interface{}{toCells(resultColumns)}
		for _, rec := range res.Records {
			rows = append(rows, []interface{}{
				rec.ReplicateID,
				rec.TotalSeeds,
				rec.GerminatedSeeds,
				rec.GerminabilityPct,
				rec.MeanGerminationTime,
				rec.CoefficientOfVariationPct,
				rec.MeanGerminationRate,
				rec.UncertaintyIndex,
				rec.SynchronyIndex,
				rec.VarianceOfGerminationTime,
				rec.StandardDeviation,
				rec.SpeedIndex,
				rec.TimeToHalfGermination,
				rec.ArcsinTransformPct,
			})
		}
		if err := writeSheetRows(f, sheet, rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

func writeSheetRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("report: cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("report: sheet %q row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func toCells(cols []string) []interface{} {
	out := make([]interface{}, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

// sheetSafe replaces characters the workbook format forbids in sheet names
// and enforces the length limit.
func sheetSafe(name string) string {
	r := strings.NewReplacer(
		":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
	)
	s := r.Replace(name)
	if s == "" {
		s = "Sheet"
	}
	if rs := []rune(s); len(rs) > maxSheetNameLen {
		s = string(rs[:maxSheetNameLen])
	}
	return s
}

// uniqueSheet disambiguates sheet names that collide after sanitizing.
func uniqueSheet(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	suffix := fmt.Sprintf("_%d", n+1)
	if rs := []rune(name); len(rs)+len(suffix) > maxSheetNameLen {
		name = string(rs[:maxSheetNameLen-len(suffix)])
	}
	return name + suffix
}
