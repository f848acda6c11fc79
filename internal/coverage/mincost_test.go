package coverage

import (
	"math"
	"reflect"
	"testing"
)

func TestMinimumCostCoverPrefersCheaperEquivalent(t *testing.T) {
	reg := mustRegistry(t,
		sat("pricey", 0, 10, 5, "Global"),
		sat("cheap", 0, 10, 1, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 10)

	selected, cost, gaps := opt.MinimumCostCover(AllRegions())

	if len(selected) != 1 || selected[0].Name != "cheap" {
		t.Fatalf("selected = %v, want just %q", selected, "cheap")
	}
	if math.Abs(cost-1) > tol {
		t.Errorf("cost = %g, want 1", cost)
	}
	if len(gaps) != 0 {
		t.Errorf("gaps = %v, want none", gaps)
	}
}

func TestMinimumCostCoverPrefersCheapChainOverExpensiveSingle(t *testing.T) {
	reg := mustRegistry(t,
		sat("one", 0, 6, 1, "Global"),
		sat("two", 5, 12, 1, "Global"),
		sat("jumbo", 0, 12, 5, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 12)

	selected, cost, _ := opt.MinimumCostCover(AllRegions())

	wantNames := []string{"one", "two"}
	if len(selected) != len(wantNames) {
		t.Fatalf("selected %d satellites, want %d", len(selected), len(wantNames))
	}
	for i, want := range wantNames {
		if selected[i].Name != want {
			t.Errorf("selected[%d] = %q, want %q", i, selected[i].Name, want)
		}
	}
	if math.Abs(cost-2) > tol {
		t.Errorf("cost = %g, want 2", cost)
	}

	// The greedy count-minimizing cover takes the single satellite here;
	// the cost-minimizing cover deliberately does not.
	greedy, _ := opt.MinimumCover(AllRegions())
	if len(greedy) != 1 || greedy[0].Name != "jumbo" {
		t.Fatalf("greedy selected = %v, want just %q", greedy, "jumbo")
	}
}

func TestMinimumCostCoverPartialReach(t *testing.T) {
	reg := mustRegistry(t,
		sat("a", 0, 8, 2, "Global"),
		sat("b", 7, 15, 2, "Global"),
	)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, cost, gaps := opt.MinimumCostCover(AllRegions())

	if len(selected) != 2 {
		t.Fatalf("selected %d satellites, want 2", len(selected))
	}
	if math.Abs(cost-4) > tol {
		t.Errorf("cost = %g, want 4", cost)
	}
	if !reflect.DeepEqual(gaps, []Interval{{Start: 15, End: 24}}) {
		t.Errorf("gaps = %v, want trailing [(15,24)]", gaps)
	}
}

func TestMinimumCostCoverNoReachableStart(t *testing.T) {
	// Nothing covers the window start, so no gapless chain exists at all.
	reg := mustRegistry(t, sat("late", 10, 24, 1, "Global"))
	opt := mustOptimizer(t, reg, 0, 24)

	selected, cost, gaps := opt.MinimumCostCover(AllRegions())

	if len(selected) != 0 || cost != 0 {
		t.Errorf("selected = %v cost = %g, want empty selection at zero cost", selected, cost)
	}
	if !reflect.DeepEqual(gaps, []Interval{{Start: 0, End: 24}}) {
		t.Errorf("gaps = %v, want the whole window", gaps)
	}
}

func TestMinimumCostCoverDemoFleet(t *testing.T) {
	reg := mustRegistry(t, demoFleet()...)
	opt := mustOptimizer(t, reg, 0, 24)

	selected, cost, gaps := opt.MinimumCostCover(AllRegions())

	if len(gaps) != 0 {
		t.Fatalf("gaps = %v, want full coverage", gaps)
	}

	// The chain must be gapless from the window start to its end.
	if len(selected) == 0 || selected[0].Interval.Start > 0 {
		t.Fatalf("selected = %v, want a chain starting at or before 0", selected)
	}
	reach := selected[0].Interval.End
	sum := selected[0].Cost
	for _, s := range selected[1:] {
		if s.Interval.Start > reach {
			t.Errorf("chain has an interior gap before %q", s.Name)
		}
		if s.Interval.End > reach {
			reach = s.Interval.End
		}
		sum += s.Cost
	}
	if reach < 24 {
		t.Errorf("chain reaches %g, want >= 24", reach)
	}
	if math.Abs(sum-cost) > tol {
		t.Errorf("reported cost %g != summed cost %g", cost, sum)
	}

	// It can never cost more than the count-minimizing greedy chain.
	greedySum := opt.Summarize(AllRegions())
	if cost > greedySum.TotalCost+tol {
		t.Errorf("min-cost chain costs %g, greedy costs %g", cost, greedySum.TotalCost)
	}
}
