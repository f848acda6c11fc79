package coverage

import (
	"fmt"
	"math"
	"sort"
)

// Optimizer runs interval-cover algorithms over a registry for a fixed
// target window. It reads the registry but never mutates it, so independent
// runs over the same registry may execute concurrently.
type Optimizer struct {
	registry *Registry
	start    float64
	end      float64
}

// NewOptimizer creates an optimizer for the window [targetStart, targetEnd).
// A window with targetStart >= targetEnd is rejected with ErrInvalidWindow;
// both the greedy sweep and the summary arithmetic assume a strictly
// positive window.
func NewOptimizer(reg *Registry, targetStart, targetEnd float64) (*Optimizer, error) {
	if targetStart >= targetEnd {
		return nil, fmt.Errorf("window [%g, %g): %w", targetStart, targetEnd, ErrInvalidWindow)
	}
	return &Optimizer{registry: reg, start: targetStart, end: targetEnd}, nil
}

// Window returns the target window the optimizer was built for.
func (o *Optimizer) Window() Interval {
	return Interval{Start: o.start, End: o.end}
}

// sortedByStart returns the filtered satellites ordered by interval start.
// The sort is stable: ties keep registry insertion order, which the
// selection tie-breaking below depends on.
func (o *Optimizer) sortedByStart(f RegionFilter) []Satellite {
	sats := o.registry.Filter(f)
	sort.SliceStable(sats, func(i, j int) bool {
		return sats[i].Interval.Start < sats[j].Interval.Start
	})
	return sats
}

// MinimumCover selects the smallest set of satellites whose intervals
// jointly cover the target window, returning the selection in coverage
// order and the residual uncovered gaps ordered by start.
//
// The sweep is greedy with exactly one level of lookahead: at each position
// every satellite starting at or before the covered frontier is a
// candidate, the one reaching furthest wins, and the losers are never
// reconsidered even if one would close a later gap.
func (o *Optimizer) MinimumCover(f RegionFilter) ([]Satellite, []Interval) {
	sats := o.sortedByStart(f)

	selected := []Satellite{}
	gaps := []Interval{}
	currentEnd := o.start
	i := 0

	for currentEnd < o.end && i < len(sats) {
		// Collect everything that can extend coverage from the frontier.
		first := i
		for i < len(sats) && sats[i].Interval.Start <= currentEnd {
			i++
		}
		candidates := sats[first:i]

		if len(candidates) == 0 {
			// Nothing reaches back to the frontier. The loop guard keeps a
			// next satellite available, and its start lies strictly past the
			// frontier (it would have been a candidate otherwise), so the
			// gap up to it is always positive. It is the only possible
			// resumption point and is selected unconditionally.
			next := sats[i]
			gaps = append(gaps, Interval{
				Start: currentEnd,
				End:   math.Min(next.Interval.Start, o.end),
			})
			selected = append(selected, next)
			currentEnd = next.Interval.End
			i++
			continue
		}

		// Furthest-reaching candidate wins. On equal ends the first
		// encountered (earliest start in sorted order) is kept.
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Interval.End > best.Interval.End {
				best = c
			}
		}
		selected = append(selected, best)
		// The frontier never regresses: a candidate batch whose best end
		// lies behind ground already covered must not reopen it as a gap.
		if best.Interval.End > currentEnd {
			currentEnd = best.Interval.End
		}
	}

	if currentEnd < o.end {
		gaps = append(gaps, Interval{Start: currentEnd, End: o.end})
	}

	return selected, gaps
}
