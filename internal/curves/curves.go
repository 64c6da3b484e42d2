package curves

import (
	"math"

	"github.com/Montcharles/germitrack/pkg/types"
)

// Build derives the cumulative and per-day curve families for every
// replicate in the table, together with the across-replicate mean and
// population standard deviation at each day. Aggregates are rounded to two
// decimals. Missing trailing observations count as zero; shape validation
// is the analysis engine's job, not ours.
func Build(table types.ObservationTable) *types.CurveSet {
	nDays := len(table.Days)
	set := &types.CurveSet{
		Days:           append([]float64(nil), table.Days...),
		Cumulative:     make([]types.ReplicateSeries, 0, len(table.Replicates)),
		Daily:          make([]types.ReplicateSeries, 0, len(table.Replicates)),
		MeanCumulative: make([]float64, nDays),
		StdCumulative:  make([]float64, nDays),
		MeanDaily:      make([]float64, nDays),
		StdDaily:       make([]float64, nDays),
	}

	for _, rep := range table.Replicates {
		daily := make([]float64, nDays)
		cum := make([]float64, nDays)
		running := 0.0
		for t := 0; t < nDays; t++ {
			v := 0.0
			if t < len(rep.Counts) {
				v = rep.Counts[t]
			}
			running += v
			daily[t] = v
			cum[t] = running
		}
		set.Daily = append(set.Daily, types.ReplicateSeries{ID: rep.ID, Counts: daily})
		set.Cumulative = append(set.Cumulative, types.ReplicateSeries{ID: rep.ID, Counts: cum})
	}

	if len(set.Cumulative) == 0 {
		return set
	}

	buf := make([]float64, len(set.Cumulative))
	for t := 0; t < nDays; t++ {
		for i, s := range set.Cumulative {
			buf[i] = s.Counts[t]
		}
		m, sd := meanStd(buf)
		set.MeanCumulative[t] = round2(m)
		set.StdCumulative[t] = round2(sd)

		for i, s := range set.Daily {
			buf[i] = s.Counts[t]
		}
		m, sd = meanStd(buf)
		set.MeanDaily[t] = round2(m)
		set.StdDaily[t] = round2(sd)
	}
	return set
}

// meanStd returns the mean and population standard deviation of vs.
func meanStd(vs []float64) (mean, std float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	mean = sum / float64(len(vs))

	varSum := 0.0
	for _, v := range vs {
		d := v - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(vs)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
