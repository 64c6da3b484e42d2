package types

import "time"

// ObservationTable is one germination trial: an ascending day axis plus one
// count series per replicate. Days are not necessarily contiguous integers;
// ties are tolerated as given. Missing cells have already been coerced to 0
// by the loader, so every series has len(Counts) == len(Days).
type ObservationTable struct {
	Days       []float64         `json:"days"`
	Replicates []ReplicateSeries `json:"replicates"`
}

// ReplicateSeries is one column of an ObservationTable: the number of newly
// germinated seeds observed on each scoring day.
type ReplicateSeries struct {
	ID     string    `json:"id"`
	Counts []float64 `json:"counts"`
}

// GerminationRecord holds the derived kinetics statistics for one replicate.
// Records are created once per analysis run and never mutated afterwards.
type GerminationRecord struct {
	ReplicateID               string  `json:"replicate_id"`
	TotalSeeds                int     `json:"total_seeds"`
	GerminatedSeeds           int     `json:"germinated_seeds"`
	GerminabilityPct          float64 `json:"germinability_pct"`
	MeanGerminationTime       float64 `json:"mean_germination_time"`
	CoefficientOfVariationPct float64 `json:"coefficient_of_variation_pct"`
	MeanGerminationRate       float64 `json:"mean_germination_rate"`
	UncertaintyIndex          float64 `json:"uncertainty_index"`
	SynchronyIndex            float64 `json:"synchrony_index"`
	VarianceOfGerminationTime float64 `json:"variance_of_germination_time"`
	StandardDeviation         float64 `json:"standard_deviation"`
	SpeedIndex                float64 `json:"speed_index"`
	TimeToHalfGermination     float64 `json:"time_to_half_germination"`
	ArcsinTransformPct        float64 `json:"arcsin_transform_pct"`
}

// CurveSet holds the per-replicate and aggregated germination curves for one
// treatment. Cumulative series are running sums of the daily counts; the
// Mean*/Std* slices are the cross-replicate mean and population standard
// deviation at each day, for both the cumulative and the daily family.
type CurveSet struct {
	Days           []float64         `json:"days"`
	Cumulative     []ReplicateSeries `json:"cumulative"`
	Daily          []ReplicateSeries `json:"daily"`
	MeanCumulative []float64         `json:"mean_cumulative"`
	StdCumulative  []float64         `json:"std_cumulative"`
	MeanDaily      []float64         `json:"mean_daily"`
	StdDaily       []float64         `json:"std_daily"`
}

// TreatmentResult is the complete analysis output for one treatment (one
// spreadsheet sheet or one delimited file). It is the unit written to
// reports, kept in the server store, and pushed over the ingest endpoint.
type TreatmentResult struct {
	Treatment  string              `json:"treatment"`
	SourceFile string              `json:"source_file,omitempty"`
	Records    []GerminationRecord `json:"records"`
	Curves     *CurveSet           `json:"curves,omitempty"`
	AnalyzedAt time.Time           `json:"analyzed_at"`
}

// TotalGerminated returns the sum of germinated seeds across all records.
func (r *TreatmentResult) TotalGerminated() int {
	var n int
	for _, rec := range r.Records {
		n += rec.GerminatedSeeds
	}
	return n
}
