package alerts

import (
	"math"
	"testing"

	"github.com/Montcharles/germitrack/pkg/types"
)

// twoRepResult builds a treatment with two replicates whose statistic means
// are easy to reason about: germinability 70, MGT 5, T50 4, uncertainty 2,
// synchrony 0.2, speed 6.
func twoRepResult() *types.TreatmentResult {
	return &types.TreatmentResult{
		Treatment: "Control",
		Records: []types.GerminationRecord{
			{
				ReplicateID:           "R1",
				TotalSeeds:            25,
				GerminatedSeeds:       20,
				GerminabilityPct:      80,
				MeanGerminationTime:   4,
				UncertaintyIndex:      1,
				SynchronyIndex:        0.25,
				SpeedIndex:            5,
				TimeToHalfGermination: 3,
			},
			{
				ReplicateID:           "R2",
				TotalSeeds:            25,
				GerminatedSeeds:       15,
				GerminabilityPct:      60,
				MeanGerminationTime:   6,
				UncertaintyIndex:      3,
				SynchronyIndex:        0.15,
				SpeedIndex:            7,
				TimeToHalfGermination: 5,
			},
		},
	}
}

func TestEvalCondition(t *testing.T) {
	res := twoRepResult()

	tests := []struct {
		name      string
		cond      string
		wantFires bool
		wantValue float64
	}{
		{"greater than fires", "germinability_pct > 60", true, 70},
		{"greater than at boundary", "germinability_pct > 70", false, 70},
		{"greater or equal at boundary", "germinability_pct >= 70", true, 70},
		{"less than", "mean_germination_time < 6", true, 5},
		{"less or equal", "time_to_half_germination <= 4", true, 4},
		{"equality", "uncertainty_index == 2", true, 2},
		{"synchrony mean", "synchrony_index < 0.5", true, 0.2},
		{"speed mean", "speed_index >= 6", true, 6},
		{"replicate count", "replicates < 3", true, 2},
		{"unknown operator", "germinability_pct ~ 5", false, 70},
		{"unknown field", "germination_mojo > 1", false, 0},
		{"missing threshold", "germinability_pct >", false, 0},
		{"non numeric threshold", "germinability_pct > abc", false, 0},
		{"extra tokens", "germinability_pct > 50 please", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fires, value := evalCondition(tt.cond, res)
			if fires != tt.wantFires {
				t.Errorf("evalCondition(%q) fires = %v, want %v", tt.cond, fires, tt.wantFires)
			}
			if math.Abs(value-tt.wantValue) > 1e-9 {
				t.Errorf("evalCondition(%q) value = %v, want %v", tt.cond, value, tt.wantValue)
			}
		})
	}
}

func TestEvalCondition_NoRecords(t *testing.T) {
	res := &types.TreatmentResult{Treatment: "Empty"}

	fires, value := evalCondition("germinability_pct < 50", res)
	if !fires || value != 0 {
		t.Errorf("empty treatment: fires = %v value = %v, want true 0", fires, value)
	}
	fires, value = evalCondition("replicates == 0", res)
	if !fires || value != 0 {
		t.Errorf("replicates on empty treatment: fires = %v value = %v, want true 0", fires, value)
	}
}
