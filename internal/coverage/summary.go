package coverage

import "math"

// Summary aggregates one optimization run over the target window. It is
// derived on demand and never persisted.
type Summary struct {
	TotalDuration      float64    `json:"total_duration"`
	CoveredDuration    float64    `json:"covered_duration"`
	CoveragePercentage float64    `json:"coverage_percentage"`
	Gaps               []Interval `json:"gaps"`
	SatellitesUsed     int        `json:"satellites_used"`
	TotalCost          float64    `json:"total_cost"`
}

// Summarize re-runs the greedy cover and derives aggregate statistics from
// it, so the summary and the raw selection agree by construction.
func (o *Optimizer) Summarize(f RegionFilter) Summary {
	selected, gaps := o.MinimumCover(f)
	return o.SummarizeCover(selected, gaps)
}

// SummarizeCover derives statistics for a selection produced by one of the
// cover algorithms over this optimizer's window.
//
// Each satellite's contribution is clipped to the window and to ground not
// already covered by an earlier selection, so covered duration plus the sum
// of gap durations always equals the window duration exactly. Costs are not
// prorated: a selected satellite is charged in full however little of its
// interval falls inside the window.
func (o *Optimizer) SummarizeCover(selected []Satellite, gaps []Interval) Summary {
	s := Summary{
		TotalDuration:  o.end - o.start,
		Gaps:           gaps,
		SatellitesUsed: len(selected),
	}

	frontier := o.start
	for _, sat := range selected {
		s.TotalCost += sat.Cost
		from := math.Max(frontier, sat.Interval.Start)
		to := math.Min(o.end, sat.Interval.End)
		if to > from {
			s.CoveredDuration += to - from
		}
		if to > frontier {
			frontier = to
		}
	}

	s.CoveragePercentage = s.CoveredDuration / s.TotalDuration * 100
	return s
}
