package kinetics

import "math"

// sumCounts returns the total number of germination events in a series.
func sumCounts(counts []float64) float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	return total
}

// cumulative returns the running sum of counts, one entry per day.
func cumulative(counts []float64) []float64 {
	out := make([]float64, len(counts))
	var run float64
	for i, c := range counts {
		run += c
		out[i] = run
	}
	return out
}

// meanGerminationTime is the day-of-germination mean weighted by daily count.
// The caller guarantees total > 0.
func meanGerminationTime(days, counts []float64, total float64) float64 {
	var weighted float64
	for i, d := range days {
		weighted += d * counts[i]
	}
	return weighted / total
}

// timeVariance is the count-weighted sample variance of germination day
// around mgt, with Bessel correction. Defined only for total > 1; otherwise 0.
func timeVariance(days, counts []float64, mgt, total float64) float64 {
	if total <= 1 {
		return 0
	}
	var ss float64
	for i, d := range days {
		dev := d - mgt
		ss += counts[i] * dev * dev
	}
	return ss / (total - 1)
}

// speedIndex is the Maguire germination speed index, Σ(count/day).
// A day value at or below zero invalidates the whole index rather than
// skipping the offending row.
func speedIndex(days, counts []float64) float64 {
	var s float64
	for i, d := range days {
		if d <= 0 {
			return 0
		}
		s += counts[i] / d
	}
	return s
}

// uncertaintyIndex is the Shannon-style synchronization uncertainty,
// -Σ f·log2(f) over the days with a nonzero count. Zero-count days contribute
// nothing and are never passed to log2.
func uncertaintyIndex(counts []float64, total float64) float64 {
	var u float64
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		f := c / total
		u -= f * math.Log2(f)
	}
	return u
}

// synchronyIndex is the pairing-based synchrony measure: the number of
// unordered germination-event pairs that share a day, divided by the number
// of pairs across the whole replicate. A denominator of zero (fewer than two
// germinated seeds) yields 0.
func synchronyIndex(counts []float64, total float64) float64 {
	den := combinations(int(total), 2)
	if den <= 0 {
		return 0
	}
	var pairs float64
	for _, c := range counts {
		pairs += combinations(int(c), 2)
	}
	return pairs / den
}

// combinations returns C(n, r), the number of unordered selections of r items
// from n. Returns 0 when either argument is negative or n < r.
func combinations(n, r int) float64 {
	if n < 0 || r < 0 || n < r {
		return 0
	}
	if r > n-r {
		r = n - r
	}
	res := 1.0
	for i := 1; i <= r; i++ {
		res = res * float64(n-r+i) / float64(i)
	}
	return res
}

// timeToTarget returns the interpolated day at which the cumulative series
// first reaches target. The first day is returned exactly when it already
// meets the target; a flat segment falls back to the previous day; a target
// the series never reaches (possible only through float rounding) falls back
// to the last day.
func timeToTarget(days, cum []float64, target float64) float64 {
	for i, c := range cum {
		if c >= target {
			if i == 0 {
				return days[0]
			}
			span := cum[i] - cum[i-1]
			if span == 0 {
				return days[i-1]
			}
			return days[i-1] + (target-cum[i-1])*(days[i]-days[i-1])/span
		}
	}
	return days[len(days)-1]
}

// TimeToFraction returns the interpolated day at which a replicate's
// cumulative germination first reaches frac of its final total, e.g. 0.5 for
// T50 or 0.9 for T90. Returns 0 for an empty series or zero germination.
func TimeToFraction(days, counts []float64, frac float64) float64 {
	if len(days) == 0 || len(counts) != len(days) {
		return 0
	}
	total := sumCounts(counts)
	if total <= 0 {
		return 0
	}
	return timeToTarget(days, cumulative(counts), frac*total)
}

// arcsineSqrt is the variance-stabilizing arcsine-square-root transform for a
// percentage, expressed in degrees. Non-positive input yields 0.
func arcsineSqrt(pct float64) float64 {
	if pct <= 0 {
		return 0
	}
	return math.Asin(math.Sqrt(clamp01(pct/100))) * 180 / math.Pi
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
