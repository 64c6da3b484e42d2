package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Montcharles/germitrack/pkg/types"
)

// resultColumns is the results-table header. The names are load-bearing:
// existing spreadsheets and downstream scripts key on them.
var resultColumns = []string{
	"Replicate",
	"Total_Seeds",
	"Germinated_Seeds",
	"G_Germinability_%",
	"MT_Mean_Germination_Time",
	"CVt_Coefficient_Variation_%",
	"MR_Mean_Germination_Rate",
	"U_Uncertainty_Index",
	"Z_Synchrony_Index",
	"Variance_Germination_Time",
	"Standard_Deviation",
	"Speed_Maguire_Index",
	"T50_Time_50%",
	"ArcSin_Transformation",
}

// CompleteWorkbookName is the combined multi-treatment workbook file name.
const CompleteWorkbookName = "GermiTrack_Complete_Analysis.xlsx"

// ResultsFileName returns the per-treatment results CSV file name.
func ResultsFileName(treatment string) string {
	return fmt.Sprintf("GermiTrack_Results_%s.csv", fileSafe(treatment))
}

// CurvesCSVName returns the per-treatment curve dataset CSV file name.
func CurvesCSVName(treatment string) string {
	return fmt.Sprintf("GermiTrack_Germination_Curves_%s.csv", fileSafe(treatment))
}

// CurvesWorkbookName returns the per-treatment curve dataset .xlsx file name.
func CurvesWorkbookName(treatment string) string {
	return fmt.Sprintf("GermiTrack_Germination_Curves_%s.xlsx", fileSafe(treatment))
}

// WriteResults writes the results table, one row per replicate.
func WriteResults(w io.Writer, records []types.GerminationRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultColumns); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.ReplicateID,
			strconv.Itoa(rec.TotalSeeds),
			num(rec.GerminatedSeeds),
			num(rec.GerminabilityPct),
			num(rec.MeanGerminationTime),
			num(rec.CoefficientOfVariationPct),
			num(rec.MeanGerminationRate),
			num(rec.UncertaintyIndex),
			num(rec.SynchronyIndex),
			num(rec.VarianceOfGerminationTime),
			num(rec.StandardDeviation),
			num(rec.SpeedIndex),
			num(rec.TimeToHalfGermination),
			num(rec.ArcsinTransformPct),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write row %s: %w", rec.ReplicateID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCurves writes the curve dataset table: day column, per-replicate
// cumulative series with their aggregates, then the daily family.
func WriteCurves(w io.Writer, cs *types.CurveSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(curveColumns(cs)); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for t := range cs.Days {
		row := make([]string, 0, 3+2*len(cs.Cumulative)+2)
		row = append(row, num(cs.Days[t]))
		for _, s := range cs.Cumulative {
			row = append(row, num(s.Counts[t]))
		}
		row = append(row, num(cs.MeanCumulative[t]), num(cs.StdCumulative[t]))
		for _, s := range cs.Daily {
			row = append(row, num(s.Counts[t]))
		}
		row = append(row, num(cs.MeanDaily[t]), num(cs.StdDaily[t]))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: write day %v: %w", cs.Days[t], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func curveColumns(cs *types.CurveSet) []string {
	cols := make([]string, 0, 3+2*len(cs.Cumulative)+2)
	cols = append(cols, "Day")
	for _, s := range cs.Cumulative {
		cols = append(cols, "Cumulative_"+s.ID)
	}
	cols = append(cols, "Mean_Cumulative", "Std_Cumulative")
	for _, s := range cs.Daily {
		cols = append(cols, "Daily_"+s.ID)
	}
	cols = append(cols, "Mean_Daily", "Std_Daily")
	return cols
}

// num renders a float without trailing zeros; values were already rounded
// upstream.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fileSafe keeps treatment names usable as file name fragments.
func fileSafe(name string) string {
	r := strings.NewReplacer("/", "-", "\\", "-")
	return r.Replace(name)
}
