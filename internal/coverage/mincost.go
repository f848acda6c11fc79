package coverage

import "math"

// MinimumCostCover selects a covering chain minimizing summed cost rather
// than satellite count. It returns the chain in coverage order, its total
// cost, and the uncovered gaps.
//
// The chain must extend coverage continuously from the window start: dp[j]
// is the cheapest chain ending with satellite j that covers
// [targetStart, end of j) without interior gaps. If no chain reaches the
// window end, the cheapest furthest-reaching chain is returned and the
// remainder is reported as a trailing gap. If no satellite covers the
// window start at all, the selection is empty and the whole window is one
// gap.
func (o *Optimizer) MinimumCostCover(f RegionFilter) ([]Satellite, float64, []Interval) {
	sats := o.sortedByStart(f)
	n := len(sats)

	dp := make([]float64, n)
	prev := make([]int, n)
	for j := 0; j < n; j++ {
		dp[j] = math.Inf(1)
		prev[j] = -1

		if sats[j].Interval.Start <= o.start {
			dp[j] = sats[j].Cost
		}
		for k := 0; k < j; k++ {
			if math.IsInf(dp[k], 1) {
				continue
			}
			// k's chain must reach j's start for the chain to stay gapless.
			if sats[k].Interval.End < sats[j].Interval.Start {
				continue
			}
			if cost := dp[k] + sats[j].Cost; cost < dp[j] {
				dp[j] = cost
				prev[j] = k
			}
		}
	}

	// Best terminal: cheapest chain covering the full window, otherwise the
	// one reaching furthest (cheapest among equal reach).
	best := -1
	for j := 0; j < n; j++ {
		if math.IsInf(dp[j], 1) {
			continue
		}
		if best == -1 {
			best = j
			continue
		}
		bFull := sats[best].Interval.End >= o.end
		jFull := sats[j].Interval.End >= o.end
		switch {
		case jFull && !bFull:
			best = j
		case jFull == bFull && jFull:
			if dp[j] < dp[best] {
				best = j
			}
		case jFull == bFull:
			if sats[j].Interval.End > sats[best].Interval.End ||
				(sats[j].Interval.End == sats[best].Interval.End && dp[j] < dp[best]) {
				best = j
			}
		}
	}

	if best == -1 {
		return []Satellite{}, 0, []Interval{{Start: o.start, End: o.end}}
	}

	// Walk the chain back to the window start.
	var selected []Satellite
	for idx := best; idx != -1; idx = prev[idx] {
		selected = append(selected, sats[idx])
	}
	for l, r := 0, len(selected)-1; l < r; l, r = l+1, r-1 {
		selected[l], selected[r] = selected[r], selected[l]
	}

	totalCost := dp[best]

	gaps := []Interval{}
	if reach := sats[best].Interval.End; reach < o.end {
		gaps = append(gaps, Interval{Start: reach, End: o.end})
	}

	return selected, totalCost, gaps
}
