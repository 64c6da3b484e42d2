package alerts

import (
	"strconv"
	"strings"

	"github.com/Montcharles/germitrack/pkg/types"
)

// evalCondition evaluates a rule condition string against a treatment result.
// All statistic fields are means across the treatment's replicates.
//
// Supported expressions (field operator value):
//
//	germinability_pct < 70
//	mean_germination_time > 6
//	time_to_half_germination > 4.5
//	uncertainty_index > 2
//	synchrony_index < 0.2
//	speed_index < 5
//	replicates < 3
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, res *types.TreatmentResult) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	v, ok := numericField(field, res)
	if !ok {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value for the treatment.
func numericField(field string, res *types.TreatmentResult) (float64, bool) {
	switch field {
	case "germinability_pct":
		return recordMean(res, func(r types.GerminationRecord) float64 { return r.GerminabilityPct }), true
	case "mean_germination_time":
		return recordMean(res, func(r types.GerminationRecord) float64 { return r.MeanGerminationTime }), true
	case "time_to_half_germination":
		return recordMean(res, func(r types.GerminationRecord) float64 { return r.TimeToHalfGermination }), true
	case "uncertainty_index":
		return recordMean(res, func(r types.GerminationRecord) float64 { return r.UncertaintyIndex }), true
	case "synchrony_index":
		return recordMean(res, func(r types.GerminationRecord) float64 { return r.SynchronyIndex }), true
	case "speed_index":
		return recordMean(res, func(r types.GerminationRecord) float64 { return r.SpeedIndex }), true
	case "replicates":
		return float64(len(res.Records)), true
	default:
		return 0, false
	}
}

// recordMean averages one statistic across all replicate records.
func recordMean(res *types.TreatmentResult, pick func(types.GerminationRecord) float64) float64 {
	if len(res.Records) == 0 {
		return 0
	}
	var sum float64
	for _, rec := range res.Records {
		sum += pick(rec)
	}
	return sum / float64(len(res.Records))
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
