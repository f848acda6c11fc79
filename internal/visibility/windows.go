// Package visibility derives coverage intervals from orbital data. Given
// two-line element sets and a ground station, it SGP4-propagates each
// satellite and scans for above-horizon windows, expressed in fractional
// hours from the scan start so they can be registered directly as coverage
// intervals.
package visibility

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/sat/coverd/internal/coverage"
)

const deg2rad = math.Pi / 180

// GroundStation is the observer location the windows are computed for.
type GroundStation struct {
	Name         string  `json:"name"`
	LatitudeDeg  float64 `json:"latitude"`
	LongitudeDeg float64 `json:"longitude"`
	AltitudeKm   float64 `json:"altitude_km"`
}

// Request holds the parameters for one visibility scan.
type Request struct {
	Station         GroundStation
	Entries         []TLE
	Start           time.Time
	HorizonHours    float64
	MinElevationDeg float64
}

// SatelliteWindows holds the computed windows for one satellite.
type SatelliteWindows struct {
	Name    string              `json:"name"`
	Windows []coverage.Interval `json:"windows"`
	Error   string              `json:"error,omitempty"`
}

const (
	coarseStep = 30 * time.Second // between coarse scan samples
	fineStep   = time.Second      // between crossing-refinement samples
	minWindow  = 10 * time.Second
)

// Scan computes above-horizon windows for every entry in the request.
// Each satellite is processed in its own goroutine, bounded by a semaphore.
func Scan(ctx context.Context, req Request) []SatelliteWindows {
	results := make([]SatelliteWindows, len(req.Entries))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, entry := range req.Entries {
		wg.Add(1)
		go func(idx int, e TLE) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = SatelliteWindows{Name: e.Name, Error: "cancelled"}
				return
			}

			windows, err := scanSatellite(ctx, req, e)
			if err != nil {
				results[idx] = SatelliteWindows{Name: e.Name, Error: err.Error()}
				return
			}
			results[idx] = SatelliteWindows{Name: e.Name, Windows: windows}
		}(i, entry)
	}

	wg.Wait()
	return results
}

// scanSatellite finds the above-threshold windows for a single satellite:
// a coarse sweep over the horizon, with each threshold crossing refined at
// one-second resolution.
func scanSatellite(ctx context.Context, req Request, e TLE) ([]coverage.Interval, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	sat := satellite.TLEToSat(e.Line1, e.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init for %q: code=%d %s", e.Name, sat.Error, sat.ErrorStr)
	}

	obs := satellite.LatLong{
		Latitude:  req.Station.LatitudeDeg * deg2rad,
		Longitude: req.Station.LongitudeDeg * deg2rad,
	}
	minEl := req.MinElevationDeg * deg2rad
	end := req.Start.Add(time.Duration(req.HorizonHours * float64(time.Hour)))

	windows := []coverage.Interval{}
	var (
		above bool
		rise  time.Time
	)

	prev := req.Start
	for t := req.Start; !t.After(end); t = t.Add(coarseStep) {
		if ctx.Err() != nil {
			break
		}

		el, err := elevationAt(sat, obs, req.Station.AltitudeKm, t)
		if err != nil {
			prev = t
			continue
		}

		nowAbove := el >= minEl
		switch {
		case nowAbove && !above:
			rise = refineCrossing(sat, obs, req.Station.AltitudeKm, prev, t, minEl, true)
		case !nowAbove && above:
			set := refineCrossing(sat, obs, req.Station.AltitudeKm, prev, t, minEl, false)
			if set.Sub(rise) >= minWindow {
				windows = append(windows, hoursInterval(req.Start, rise, set))
			}
		}
		above = nowAbove
		prev = t
	}

	// Still above the threshold at the end of the scan; close the window
	// at the horizon.
	if above && end.Sub(rise) >= minWindow {
		windows = append(windows, hoursInterval(req.Start, rise, end))
	}

	return windows, nil
}

// refineCrossing walks [from, to] at fine resolution and returns the first
// sample at or past the threshold crossing. rising selects which direction
// of crossing is sought. Samples that fail to propagate are skipped.
func refineCrossing(sat satellite.Satellite, obs satellite.LatLong, altKm float64, from, to time.Time, minEl float64, rising bool) time.Time {
	for t := from; t.Before(to); t = t.Add(fineStep) {
		el, err := elevationAt(sat, obs, altKm, t)
		if err != nil {
			continue
		}
		if rising == (el >= minEl) {
			return t
		}
	}
	return to
}

// elevationAt returns the satellite's elevation above the observer's
// horizon, in radians, at time t.
func elevationAt(sat satellite.Satellite, obs satellite.LatLong, altKm float64, t time.Time) (float64, error) {
	pos, _ := satellite.Propagate(sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return 0, fmt.Errorf("propagation failed at %s: output is NaN/Inf", t.Format(time.RFC3339))
	}

	jday := satellite.JDay(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	la := satellite.ECIToLookAngles(pos, obs, altKm, jday)
	return la.El, nil
}

// hoursInterval converts absolute rise/set times into a coverage interval
// in fractional hours from the scan origin.
func hoursInterval(origin, rise, set time.Time) coverage.Interval {
	return coverage.Interval{
		Start: rise.Sub(origin).Hours(),
		End:   set.Sub(origin).Hours(),
	}
}
