package api

import (
	"fmt"

	"github.com/Montcharles/germitrack/pkg/types"
)

// DiagnosticHint is one human-readable insight about a treatment's kinetics.
// The UI displays these as chips on the treatment card; clicking one shows
// Detail, written like an assistant explaining the finding in plain English.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives diagnostic hints from one treatment's result.
// Hints are ordered critical first, then warnings, then info.
func computeDiagnostics(res *types.TreatmentResult) []DiagnosticHint {
	var hints []DiagnosticHint

	// No germination at all.
	if res.TotalGerminated() == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_germination",
			Level: "critical",
			Title: "No germination",
			Detail: fmt.Sprintf(
				"Not a single seed germinated across %d replicate(s). "+
					"Either the lot is dead, the trial conditions were wrong "+
					"(temperature, moisture, light), or the counts were never entered. "+
					"All kinetics statistics are zero until some germination is recorded, "+
					"so check the raw input file before reading anything into the numbers.",
				len(res.Records),
			),
		})
		return hints // nothing else to diagnose without germination
	}

	g := meanGerminability(res)

	// Low germinability.
	if g < 70 {
		v := g
		level := "warning"
		if g < 50 {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "low_germinability",
			Level: level,
			Title: fmt.Sprintf("%.1f%% germinability", g),
			Detail: fmt.Sprintf(
				"On average only %.1f%% of seeds germinated, which is below the 70%% "+
					"floor most certification schemes expect. Common causes are seed age, "+
					"poor storage, dormancy that the pre-treatment did not break, or a "+
					"stress treatment doing exactly what it was designed to do. "+
					"If this is a control, the lot itself is suspect.",
				g,
			),
			Value: &v,
		})
	}

	// Replicates disagreeing with each other.
	if len(res.Records) >= 2 {
		minG, maxG := res.Records[0].GerminabilityPct, res.Records[0].GerminabilityPct
		for _, rec := range res.Records[1:] {
			if rec.GerminabilityPct < minG {
				minG = rec.GerminabilityPct
			}
			if rec.GerminabilityPct > maxG {
				maxG = rec.GerminabilityPct
			}
		}
		if spread := maxG - minG; spread > 20 {
			v := spread
			hints = append(hints, DiagnosticHint{
				Key:   "uneven_replicates",
				Level: "warning",
				Title: "Uneven replicates",
				Detail: fmt.Sprintf(
					"Final germination differs by %.1f percentage points between the best "+
						"and worst replicate (%.1f%% vs %.1f%%). That much spread usually means "+
						"something other than the treatment varied: position in the chamber, "+
						"watering, or contamination in one dish. Treatment means are unreliable "+
						"until the replicates agree better.",
					spread, maxG, minG,
				),
				Value: &v,
			})
		}
	}

	// Slow to reach half of final germination.
	if res.Curves != nil && len(res.Curves.Days) > 0 {
		lastDay := res.Curves.Days[len(res.Curves.Days)-1]
		t50 := meanRecordField(res, func(r types.GerminationRecord) float64 {
			return r.TimeToHalfGermination
		})
		if t50 > 0 && lastDay > 0 && t50 > lastDay/2 {
			v := t50
			hints = append(hints, DiagnosticHint{
				Key:   "slow_t50",
				Level: "warning",
				Title: fmt.Sprintf("T50 at %.1f days", t50),
				Detail: fmt.Sprintf(
					"The seeds needed %.1f days on average to reach half of their final "+
						"germination, which is more than half of the %.0f-day scoring window. "+
						"A slow lot like this may still have been germinating when scoring "+
						"stopped, so the final percentages could be underestimates. "+
						"Consider extending the trial for this treatment.",
					t50, lastDay,
				),
				Value: &v,
			})
		}
	}

	// Germination spread out over many days.
	z := meanRecordField(res, func(r types.GerminationRecord) float64 {
		return r.SynchronyIndex
	})
	if z < 0.2 {
		v := z
		hints = append(hints, DiagnosticHint{
			Key:   "asynchronous",
			Level: "info",
			Title: "Spread-out germination",
			Detail: fmt.Sprintf(
				"The synchrony index is %.3f, meaning two randomly picked seeds rarely "+
					"germinated on the same day. Spread-out germination is typical of "+
					"dormancy gradients or stress treatments. It is not an error, but it "+
					"makes single-day snapshots of the trial misleading, so rely on the "+
					"full curve rather than any one day's count.",
				z,
			),
			Value: &v,
		})
	}

	// Day-zero scoring suppresses the speed index.
	if res.Curves != nil && len(res.Curves.Days) > 0 && res.Curves.Days[0] <= 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "day_zero",
			Level: "info",
			Title: "Day zero in axis",
			Detail: "The day axis starts at zero (or below), and the Maguire speed index " +
				"divides each day's count by the day number. To avoid dividing by zero " +
				"the speed index is reported as 0 for every replicate of this treatment. " +
				"If scoring really started on the sowing day, renumber the days from 1.",
		})
	}

	// All clear.
	if len(hints) == 0 {
		v := g
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"This treatment looks good: %.1f%% germinability, replicates in "+
					"agreement, and no timing anomalies. Compare the curve against the "+
					"control to quantify any treatment effect.",
				g,
			),
			Value: &v,
		})
	}

	return hints
}
