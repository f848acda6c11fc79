package coverage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned when a satellite is registered with
	// start after end.
	ErrInvalidInterval = errors.New("invalid coverage interval: start is after end")

	// ErrInvalidWindow is returned when an optimizer is constructed with a
	// target window that is not strictly positive.
	ErrInvalidWindow = errors.New("invalid target window: start must be before end")
)

// Satellite is one coverage provider: a named interval with an acquisition
// cost and the region it serves. Names are display labels and are not
// required to be unique.
type Satellite struct {
	Name     string   `json:"name"`
	Interval Interval `json:"interval"`
	Cost     float64  `json:"cost"`
	Region   string   `json:"region"`
}

// RegionFilter selects which satellites participate in an optimization run.
// It is an explicit match-all vs match-one sum type, so a real region named
// "All" can never be confused with the wildcard. The zero value matches
// nothing; use AllRegions or InRegion.
type RegionFilter struct {
	all    bool
	region string
}

// AllRegions matches every satellite regardless of its region string.
func AllRegions() RegionFilter {
	return RegionFilter{all: true}
}

// InRegion matches satellites whose region exactly equals name.
// The comparison is case-sensitive with no normalization.
func InRegion(name string) RegionFilter {
	return RegionFilter{region: name}
}

// Matches reports whether the satellite passes the filter.
func (f RegionFilter) Matches(s Satellite) bool {
	return f.all || s.Region == f.region
}

func (f RegionFilter) String() string {
	if f.all {
		return "all regions"
	}
	return fmt.Sprintf("region %q", f.region)
}

// Registry holds satellites in insertion order. It is populated once per
// run and then read by any number of optimizations; it is not safe for
// concurrent mutation while an optimization reads it.
type Registry struct {
	satellites []Satellite
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a satellite to the registry. A descriptor with start > end is
// rejected with ErrInvalidInterval and the registry is left unchanged.
func (r *Registry) Add(name string, start, end, cost float64, region string) error {
	if start > end {
		return fmt.Errorf("satellite %q [%g, %g]: %w", name, start, end, ErrInvalidInterval)
	}
	r.satellites = append(r.satellites, Satellite{
		Name:     name,
		Interval: Interval{Start: start, End: end},
		Cost:     cost,
		Region:   region,
	})
	return nil
}

// Len returns the number of registered satellites.
func (r *Registry) Len() int {
	return len(r.satellites)
}

// All returns a copy of every registered satellite in insertion order.
func (r *Registry) All() []Satellite {
	out := make([]Satellite, len(r.satellites))
	copy(out, r.satellites)
	return out
}

// Filter returns the satellites matching f, preserving insertion order.
// The result is an independent slice; mutating it does not affect the
// registry.
func (r *Registry) Filter(f RegionFilter) []Satellite {
	if f.all {
		return r.All()
	}
	out := []Satellite{}
	for _, s := range r.satellites {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}
