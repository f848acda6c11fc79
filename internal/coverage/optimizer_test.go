package coverage

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

const tol = 1e-9

func mustRegistry(t *testing.T, sats ...Satellite) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, s := range sats {
		if err := reg.Add(s.Name, s.Interval.Start, s.Interval.End, s.Cost, s.Region); err != nil {
			t.Fatalf("Add(%s): %v", s.Name, err)
		}
	}
	return reg
}

func mustOptimizer(t *testing.T, reg *Registry, start, end float64) *Optimizer {
	t.Helper()
	opt, err := NewOptimizer(reg, start, end)
	if err != nil {
		t.Fatalf("NewOptimizer: %v", err)
	}
	return opt
}

func sat(name string, start, end, cost float64, region string) Satellite {
	return Satellite{Name: name, Interval: Interval{Start: start, End: end}, Cost: cost, Region: region}
}

// demoFleet mirrors the 10-satellite reference constellation used by the
// default endpoint.
func demoFleet() []Satellite {
	return []Satellite{
		sat("Sat-Alpha", 0, 6, 1200, "Asia"),
		sat("Sat-Beta", 4, 10, 1500, "Europe"),
		sat("Sat-Gamma", 8, 14, 1800, "Asia"),
		sat("Sat-Delta", 12, 18, 1300, "Americas"),
		sat("Sat-Epsilon", 16, 22, 1600, "Europe"),
		sat("Sat-Zeta", 20, 24, 1100, "Global"),
		sat("Sat-Eta", 2, 8, 900, "Asia"),
		sat("Sat-Theta", 10, 16, 1400, "Europe"),
		sat("Sat-Iota", 14, 20, 1700, "Americas"),
		sat("Sat-Kappa", 18, 23, 1000, "Global"),
	}
}

func TestNewOptimizerRejectsBadWindow(t *testing.T) {
	reg := NewRegistry()

	for _, w := range []struct{ start, end float64 }{{24, 0}, {5, 5}} {
		_, err := NewOptimizer(reg, w.start, w.end)
		if !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("NewOptimizer(%g, %g) error = %v, want ErrInvalidWindow", w.start, w.end, err)
		}
	}
}

func TestMinimumCoverFullCoverage(t *testing.T) {
	reg := mustRegistry(t,
		sat("a", 0, 10, 1, "Global"),
		sat("b", 8, 20, 1, "Global"),
		sat("c", 15, 24, 1, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, gaps := opt.MinimumCover(AllRegions())

	if len(selected) != 3 {
		t.Fatalf("selected %d satellites, want 3", len(selected))
	}
	for i, want := range []string{"a", "b", "c"} {
		if selected[i].Name != want {
			t.Errorf("selected[%d] = %q, want %q", i, selected[i].Name, want)
		}
	}
	if len(gaps) != 0 {
		t.Errorf("gaps = %v, want none", gaps)
	}

	sum := opt.Summarize(AllRegions())
	if math.Abs(sum.CoveragePercentage-100) > tol {
		t.Errorf("coverage = %g%%, want 100%%", sum.CoveragePercentage)
	}
}

func TestMinimumCoverSingleGap(t *testing.T) {
	reg := mustRegistry(t,
		sat("a", 0, 5, 1, "Global"),
		sat("b", 10, 24, 1, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, gaps := opt.MinimumCover(AllRegions())

	if len(selected) != 2 {
		t.Fatalf("selected %d satellites, want 2", len(selected))
	}
	if !reflect.DeepEqual(gaps, []Interval{{Start: 5, End: 10}}) {
		t.Errorf("gaps = %v, want [(5,10)]", gaps)
	}

	sum := opt.Summarize(AllRegions())
	if math.Abs(sum.CoveredDuration-19) > tol {
		t.Errorf("covered = %g, want 19", sum.CoveredDuration)
	}
	if math.Abs(sum.CoveragePercentage-19.0/24*100) > tol {
		t.Errorf("coverage = %g%%, want %g%%", sum.CoveragePercentage, 19.0/24*100)
	}
}

func TestMinimumCoverEmptyRegistry(t *testing.T) {
	opt := mustOptimizer(t, NewRegistry(), 0, 24)

	selected, gaps := opt.MinimumCover(AllRegions())

	if len(selected) != 0 {
		t.Errorf("selected = %v, want none", selected)
	}
	if !reflect.DeepEqual(gaps, []Interval{{Start: 0, End: 24}}) {
		t.Errorf("gaps = %v, want the whole window", gaps)
	}

	sum := opt.Summarize(AllRegions())
	if sum.CoveragePercentage != 0 || sum.TotalCost != 0 || sum.SatellitesUsed != 0 {
		t.Errorf("summary = %+v, want zero coverage, zero cost, zero used", sum)
	}
}

func TestMinimumCoverUnmatchedRegionIsOneGap(t *testing.T) {
	reg := mustRegistry(t, sat("a", 0, 24, 1, "Asia"))
	opt := mustOptimizer(t, reg, 0, 24)

	selected, gaps := opt.MinimumCover(InRegion("Pacific"))
	if len(selected) != 0 || len(gaps) != 1 {
		t.Fatalf("selected = %v, gaps = %v; want empty selection and one gap", selected, gaps)
	}
}

func TestMinimumCoverTieBreakOnEqualEnd(t *testing.T) {
	// Both cover the window start and end at 12; the earlier start in
	// sorted order must win.
	reg := mustRegistry(t,
		sat("late", 0, 12, 1, "Global"),
		sat("early", -3, 12, 1, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, _ := opt.MinimumCover(AllRegions())
	if len(selected) == 0 || selected[0].Name != "early" {
		t.Errorf("selected = %v, want %q chosen first", selected, "early")
	}
}

func TestMinimumCoverInsertionOrderBreaksStartTies(t *testing.T) {
	// Same start, same end: stable sort keeps insertion order, so the
	// first-registered satellite is chosen.
	reg := mustRegistry(t,
		sat("first", 0, 12, 1, "Global"),
		sat("second", 0, 12, 1, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, _ := opt.MinimumCover(AllRegions())
	if len(selected) == 0 || selected[0].Name != "first" {
		t.Errorf("selected = %v, want %q chosen first", selected, "first")
	}
}

func TestMinimumCoverGapThenResume(t *testing.T) {
	// After the gap the earliest-starting satellite is selected even though
	// a later one reaches further; the lookahead is one level only.
	reg := mustRegistry(t,
		sat("a", 0, 4, 1, "Global"),
		sat("resume", 8, 12, 1, "Global"),
		sat("far", 14, 24, 1, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, gaps := opt.MinimumCover(AllRegions())

	wantNames := []string{"a", "resume", "far"}
	if len(selected) != len(wantNames) {
		t.Fatalf("selected %d satellites, want %d", len(selected), len(wantNames))
	}
	for i, want := range wantNames {
		if selected[i].Name != want {
			t.Errorf("selected[%d] = %q, want %q", i, selected[i].Name, want)
		}
	}
	wantGaps := []Interval{{Start: 4, End: 8}, {Start: 12, End: 14}}
	if !reflect.DeepEqual(gaps, wantGaps) {
		t.Errorf("gaps = %v, want %v", gaps, wantGaps)
	}
}

func TestMinimumCoverLoneMidWindowSatellite(t *testing.T) {
	// Nothing covers the window start, so the sweep opens with a gap up to
	// the resumption satellite and closes with a trailing gap after it.
	reg := mustRegistry(t, sat("mid", 5, 8, 1, "Global"))
	opt := mustOptimizer(t, reg, 0, 24)

	selected, gaps := opt.MinimumCover(AllRegions())

	if len(selected) != 1 || selected[0].Name != "mid" {
		t.Fatalf("selected = %v, want just %q", selected, "mid")
	}
	wantGaps := []Interval{{Start: 0, End: 5}, {Start: 8, End: 24}}
	if !reflect.DeepEqual(gaps, wantGaps) {
		t.Errorf("gaps = %v, want %v", gaps, wantGaps)
	}

	sum := opt.Summarize(AllRegions())
	if math.Abs(sum.CoveredDuration-3) > tol {
		t.Errorf("covered = %g, want 3", sum.CoveredDuration)
	}
}

func TestMinimumCoverDemoFleet(t *testing.T) {
	reg := mustRegistry(t, demoFleet()...)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, gaps := opt.MinimumCover(AllRegions())

	wantNames := []string{"Sat-Alpha", "Sat-Beta", "Sat-Theta", "Sat-Epsilon", "Sat-Zeta"}
	if len(selected) != len(wantNames) {
		t.Fatalf("selected %d satellites, want %d", len(selected), len(wantNames))
	}
	for i, want := range wantNames {
		if selected[i].Name != want {
			t.Errorf("selected[%d] = %q, want %q", i, selected[i].Name, want)
		}
	}
	if len(gaps) != 0 {
		t.Errorf("gaps = %v, want none", gaps)
	}

	sum := opt.Summarize(AllRegions())
	if math.Abs(sum.TotalCost-6800) > tol {
		t.Errorf("total cost = %g, want 6800", sum.TotalCost)
	}
}

func TestMinimumCoverRegionalGap(t *testing.T) {
	reg := mustRegistry(t, demoFleet()...)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, gaps := opt.MinimumCover(InRegion("Asia"))

	if len(selected) != 3 {
		t.Fatalf("selected %d satellites, want 3", len(selected))
	}
	if !reflect.DeepEqual(gaps, []Interval{{Start: 14, End: 24}}) {
		t.Errorf("gaps = %v, want [(14,24)]", gaps)
	}

	sum := opt.Summarize(InRegion("Asia"))
	if math.Abs(sum.CoveredDuration-14) > tol {
		t.Errorf("covered = %g, want 14", sum.CoveredDuration)
	}
	if math.Abs(sum.TotalCost-3900) > tol {
		t.Errorf("total cost = %g, want 3900", sum.TotalCost)
	}
}

func TestMinimumCoverIdempotent(t *testing.T) {
	reg := mustRegistry(t, demoFleet()...)
	opt := mustOptimizer(t, reg, 0, 24)

	sel1, gaps1 := opt.MinimumCover(AllRegions())
	sel2, gaps2 := opt.MinimumCover(AllRegions())

	if !reflect.DeepEqual(sel1, sel2) || !reflect.DeepEqual(gaps1, gaps2) {
		t.Error("repeated runs over an unmodified registry differ")
	}
	if !reflect.DeepEqual(opt.Summarize(AllRegions()), opt.Summarize(AllRegions())) {
		t.Error("repeated summaries differ")
	}
}

func TestSummaryClipsToWindow(t *testing.T) {
	reg := mustRegistry(t, sat("wide", -5, 30, 1, "Global"))
	opt := mustOptimizer(t, reg, 0, 24)

	sum := opt.Summarize(AllRegions())
	if math.Abs(sum.CoveredDuration-24) > tol {
		t.Errorf("covered = %g, want 24 (clipped), not 35", sum.CoveredDuration)
	}
	if math.Abs(sum.CoveragePercentage-100) > tol {
		t.Errorf("coverage = %g%%, want 100%%", sum.CoveragePercentage)
	}
}

func TestSummaryCostIsNotProrated(t *testing.T) {
	reg := mustRegistry(t, sat("partial", 0, 5, 3.0, "Global"))
	opt := mustOptimizer(t, reg, 0, 24)

	sum := opt.Summarize(AllRegions())
	if math.Abs(sum.TotalCost-3.0) > tol {
		t.Errorf("total cost = %g, want full 3.0 despite partial overlap", sum.TotalCost)
	}
}

func TestSummaryOverlapIsNotDoubleCounted(t *testing.T) {
	// Heavily overlapping selections still account each hour once.
	reg := mustRegistry(t,
		sat("a", 0, 10, 1, "Global"),
		sat("b", 8, 20, 1, "Global"),
		sat("c", 15, 24, 1, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 24)

	sum := opt.Summarize(AllRegions())
	if math.Abs(sum.CoveredDuration-24) > tol {
		t.Errorf("covered = %g, want 24", sum.CoveredDuration)
	}
}

// TestCoverageAccountingInvariant checks that covered duration plus gap
// durations equals the window duration for a spread of fleets and windows.
func TestCoverageAccountingInvariant(t *testing.T) {
	fleets := map[string][]Satellite{
		"demo":        demoFleet(),
		"empty":       {},
		"one wide":    {sat("w", -10, 40, 2, "Global")},
		"degenerate":  {sat("p", 5, 5, 1, "Global"), sat("q", 0, 3, 1, "Global")},
		"gappy":       {sat("a", 0, 2, 1, "Global"), sat("b", 6, 9, 1, "Global"), sat("c", 20, 22, 1, "Global")},
		"late start":  {sat("l", 18, 30, 1, "Global")},
		"before only": {sat("x", -9, -1, 1, "Global")},
	}
	windows := [][2]float64{{0, 24}, {0, 12}, {3, 21}, {-2, 26}}

	for name, fleet := range fleets {
		for _, w := range windows {
			opt := mustOptimizer(t, mustRegistry(t, fleet...), w[0], w[1])
			sum := opt.Summarize(AllRegions())

			gapTotal := 0.0
			for _, g := range sum.Gaps {
				gapTotal += g.Duration()
			}
			if math.Abs(sum.CoveredDuration+gapTotal-sum.TotalDuration) > tol {
				t.Errorf("fleet %q window %v: covered %g + gaps %g != total %g",
					name, w, sum.CoveredDuration, gapTotal, sum.TotalDuration)
			}
		}
	}
}
