// Package fleet holds named sets of satellite coverage descriptors and
// their SQLite persistence. A fleet is the unit the optimizer runs over:
// each optimization rebuilds a fresh registry snapshot from the fleet, so
// concurrent runs never share mutable state.
package fleet

import (
	"time"

	"github.com/sat/coverd/internal/coverage"
)

// Descriptor is one satellite as supplied by callers: the wire-level record
// from which coverage satellites are built. Defaults (cost 1.0, region
// "Global") are resolved before a descriptor is constructed.
type Descriptor struct {
	Name   string  `json:"name"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Cost   float64 `json:"cost"`
	Region string  `json:"region"`
}

// Fleet is a named, ordered set of satellite descriptors. SatelliteCount
// is always populated; Satellites is omitted by List, which returns
// summaries only.
type Fleet struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	CreatedAt      time.Time    `json:"created_at"`
	SatelliteCount int          `json:"satellite_count"`
	Satellites     []Descriptor `json:"satellites,omitempty"`
}

// BuildRegistry registers every descriptor in order, failing on the first
// invalid interval so callers never observe a partially valid fleet.
func BuildRegistry(sats []Descriptor) (*coverage.Registry, error) {
	reg := coverage.NewRegistry()
	for _, d := range sats {
		if err := reg.Add(d.Name, d.Start, d.End, d.Cost, d.Region); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Demo returns the reference constellation served by the default
// optimization endpoint: ten satellites across four regions over a 24-hour
// window.
func Demo() []Descriptor {
	return []Descriptor{
		{Name: "Sat-Alpha", Start: 0, End: 6, Cost: 1200, Region: "Asia"},
		{Name: "Sat-Beta", Start: 4, End: 10, Cost: 1500, Region: "Europe"},
		{Name: "Sat-Gamma", Start: 8, End: 14, Cost: 1800, Region: "Asia"},
		{Name: "Sat-Delta", Start: 12, End: 18, Cost: 1300, Region: "Americas"},
		{Name: "Sat-Epsilon", Start: 16, End: 22, Cost: 1600, Region: "Europe"},
		{Name: "Sat-Zeta", Start: 20, End: 24, Cost: 1100, Region: "Global"},
		{Name: "Sat-Eta", Start: 2, End: 8, Cost: 900, Region: "Asia"},
		{Name: "Sat-Theta", Start: 10, End: 16, Cost: 1400, Region: "Europe"},
		{Name: "Sat-Iota", Start: 14, End: 20, Cost: 1700, Region: "Americas"},
		{Name: "Sat-Kappa", Start: 18, End: 23, Cost: 1000, Region: "Global"},
	}
}
