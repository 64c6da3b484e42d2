package kinetics

import (
	"fmt"
	"math"

	"github.com/Montcharles/germitrack/pkg/types"
)

// DefaultTotalSeeds is the assumed number of seeds sown per replicate when
// the trial configuration does not specify one.
const DefaultTotalSeeds = 25

// Config holds the per-run parameters shared read-only by all replicate
// computations within an analysis.
type Config struct {
	// TotalSeedsPerReplicate is the number of seeds sown in each replicate.
	// Non-positive values fall back to DefaultTotalSeeds.
	TotalSeedsPerReplicate int
}

// DataShapeError reports structurally invalid input: an empty table, a
// replicate whose length disagrees with the day axis, or a negative count.
// Numerically degenerate replicates (zero germination) are not errors.
type DataShapeError struct {
	Reason string
}

func (e *DataShapeError) Error() string {
	return "kinetics: " + e.Reason
}

// Engine derives germination kinetics records from observation tables.
//
// Engine holds no state across calls; Analyze is a pure function of the
// table and the configuration, so one Engine may be shared freely across
// goroutines.
type Engine struct {
	cfg Config
}

// New returns an Engine using cfg, substituting DefaultTotalSeeds when no
// positive seed count is configured.
func New(cfg Config) *Engine {
	if cfg.TotalSeedsPerReplicate <= 0 {
		cfg.TotalSeedsPerReplicate = DefaultTotalSeeds
	}
	return &Engine{cfg: cfg}
}

// Seeds returns the configured seed count per replicate.
func (e *Engine) Seeds() int {
	return e.cfg.TotalSeedsPerReplicate
}

// Analyze computes one GerminationRecord per replicate column, in column
// order. Every replicate column present in the table is analyzed; callers
// that cap replicates for presentation do so downstream.
func (e *Engine) Analyze(table types.ObservationTable) ([]types.GerminationRecord, error) {
	if err := validateShape(table); err != nil {
		return nil, err
	}

	records := make([]types.GerminationRecord, 0, len(table.Replicates))
	for _, rep := range table.Replicates {
		records = append(records, e.analyzeReplicate(table.Days, rep))
	}
	return records, nil
}

// validateShape rejects structurally invalid tables. Negative counts are
// reported rather than coerced.
func validateShape(table types.ObservationTable) error {
	if len(table.Days) == 0 {
		return &DataShapeError{Reason: "empty table: no day rows"}
	}
	if len(table.Replicates) == 0 {
		return &DataShapeError{Reason: "empty table: no replicate columns"}
	}
	for _, rep := range table.Replicates {
		if len(rep.Counts) != len(table.Days) {
			return &DataShapeError{Reason: fmt.Sprintf(
				"replicate %q has %d counts for %d days", rep.ID, len(rep.Counts), len(table.Days))}
		}
		for i, c := range rep.Counts {
			if c < 0 {
				return &DataShapeError{Reason: fmt.Sprintf(
					"replicate %q has negative count %v on day %v", rep.ID, c, table.Days[i])}
			}
		}
	}
	return nil
}

// analyzeReplicate runs the full formula pipeline for a single replicate.
func (e *Engine) analyzeReplicate(days []float64, rep types.ReplicateSeries) types.GerminationRecord {
	rec := types.GerminationRecord{
		ReplicateID: rep.ID,
		TotalSeeds:  e.cfg.TotalSeedsPerReplicate,
	}

	total := sumCounts(rep.Counts)
	if total <= 0 {
		// Zero germination: every derived statistic stays 0.
		return rec
	}
	rec.GerminatedSeeds = int(total)

	germinability := total / float64(e.cfg.TotalSeedsPerReplicate) * 100
	mgt := meanGerminationTime(days, rep.Counts, total)
	variance := timeVariance(days, rep.Counts, mgt, total)
	sd := math.Sqrt(variance)

	var cv, mgr float64
	if mgt > 0 {
		cv = sd / mgt * 100
		mgr = 1 / mgt
	}

	t50 := timeToTarget(days, cumulative(rep.Counts), 0.5*total)

	rec.GerminabilityPct = roundTo(germinability, 2)
	rec.MeanGerminationTime = roundTo(mgt, 2)
	rec.CoefficientOfVariationPct = roundTo(cv, 2)
	rec.MeanGerminationRate = roundTo(mgr, 4)
	rec.UncertaintyIndex = roundTo(uncertaintyIndex(rep.Counts, total), 3)
	rec.SynchronyIndex = roundTo(synchronyIndex(rep.Counts, total), 3)
	rec.VarianceOfGerminationTime = roundTo(variance, 2)
	rec.StandardDeviation = roundTo(sd, 2)
	rec.SpeedIndex = roundTo(speedIndex(days, rep.Counts), 2)
	rec.TimeToHalfGermination = roundTo(t50, 2)
	rec.ArcsinTransformPct = roundTo(arcsineSqrt(germinability), 2)
	return rec
}
