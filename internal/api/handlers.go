package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sat/coverd/internal/coverage"
	"github.com/sat/coverd/internal/fleet"
	"github.com/sat/coverd/internal/metrics"
	"github.com/sat/coverd/internal/visibility"
)

const (
	defaultWindowStart = 0.0
	defaultWindowEnd   = 24.0

	// regionWildcard is the wire-level sentinel for "no region filter".
	// Internally it is mapped to the explicit coverage.AllRegions filter.
	regionWildcard = "All"

	algorithmGreedy  = "greedy"
	algorithmMinCost = "mincost"

	maxRequestBody = 1 << 20
)

var errUnknownAlgorithm = errors.New("unknown algorithm")

// VisibilityConfig bounds visibility scan requests so a single call cannot
// consume unbounded CPU.
type VisibilityConfig struct {
	MaxSatellites   int
	MaxHorizonHours float64
}

// satelliteInput is a satellite descriptor as it arrives on the wire.
// Name and region travel as discrete fields; cost is optional so an absent
// value can default to 1.0 without conflating it with an explicit zero.
type satelliteInput struct {
	Name   string   `json:"name"`
	Start  float64  `json:"start"`
	End    float64  `json:"end"`
	Cost   *float64 `json:"cost"`
	Region string   `json:"region"`
}

func (in satelliteInput) descriptor() (fleet.Descriptor, error) {
	d := fleet.Descriptor{
		Name:   in.Name,
		Start:  in.Start,
		End:    in.End,
		Cost:   1.0,
		Region: "Global",
	}
	if in.Cost != nil {
		if *in.Cost < 0 {
			return fleet.Descriptor{}, fmt.Errorf("satellite %q: cost must be non-negative", in.Name)
		}
		d.Cost = *in.Cost
	}
	if in.Region != "" {
		d.Region = in.Region
	}
	return d, nil
}

type optimizeRequest struct {
	Satellites  []satelliteInput `json:"satellites"`
	TargetStart *float64         `json:"target_start"`
	TargetEnd   *float64         `json:"target_end"`
	Region      string           `json:"region"`
	Algorithm   string           `json:"algorithm"`
}

type satelliteView struct {
	Name     string  `json:"name"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Cost     float64 `json:"cost"`
	Region   string  `json:"region"`
}

type gapView struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

type summaryView struct {
	TotalDuration      float64 `json:"total_duration"`
	CoveredDuration    float64 `json:"covered_duration"`
	CoveragePercentage float64 `json:"coverage_percentage"`
	SatellitesUsed     int     `json:"satellites_used"`
	TotalCost          float64 `json:"total_cost"`
	GapCount           int     `json:"gap_count"`
}

type optimizeResponse struct {
	Window     coverage.Interval `json:"window"`
	Region     string            `json:"region"`
	Algorithm  string            `json:"algorithm"`
	Satellites []satelliteView   `json:"satellites"`
	Selected   []satelliteView   `json:"selected"`
	Gaps       []gapView         `json:"gaps"`
	Summary    summaryView       `json:"summary"`
}

type optimizeParams struct {
	sats      []fleet.Descriptor
	start     float64
	end       float64
	region    string
	algorithm string
}

// regionFilter maps the wire sentinel to the explicit filter type.
func regionFilter(region string) coverage.RegionFilter {
	if region == "" || region == regionWildcard {
		return coverage.AllRegions()
	}
	return coverage.InRegion(region)
}

// runOptimization builds a fresh registry snapshot from the descriptors,
// runs the selected cover algorithm, and assembles the response.
func runOptimization(p optimizeParams) (*optimizeResponse, error) {
	reg, err := fleet.BuildRegistry(p.sats)
	if err != nil {
		return nil, err
	}
	opt, err := coverage.NewOptimizer(reg, p.start, p.end)
	if err != nil {
		return nil, err
	}

	filter := regionFilter(p.region)

	var (
		selected []coverage.Satellite
		gaps     []coverage.Interval
	)
	switch p.algorithm {
	case algorithmGreedy:
		selected, gaps = opt.MinimumCover(filter)
	case algorithmMinCost:
		selected, _, gaps = opt.MinimumCostCover(filter)
	default:
		return nil, fmt.Errorf("%w %q (want %q or %q)", errUnknownAlgorithm, p.algorithm, algorithmGreedy, algorithmMinCost)
	}

	summary := opt.SummarizeCover(selected, gaps)
	metrics.ObserveOptimization(p.algorithm, summary.CoveragePercentage)

	resp := &optimizeResponse{
		Window:     opt.Window(),
		Region:     p.region,
		Algorithm:  p.algorithm,
		Satellites: satelliteViews(reg.All()),
		Selected:   satelliteViews(selected),
		Gaps:       gapViews(gaps),
		Summary: summaryView{
			TotalDuration:      summary.TotalDuration,
			CoveredDuration:    summary.CoveredDuration,
			CoveragePercentage: summary.CoveragePercentage,
			SatellitesUsed:     summary.SatellitesUsed,
			TotalCost:          summary.TotalCost,
			GapCount:           len(summary.Gaps),
		},
	}
	return resp, nil
}

func satelliteViews(sats []coverage.Satellite) []satelliteView {
	views := make([]satelliteView, len(sats))
	for i, s := range sats {
		views[i] = satelliteView{
			Name:     s.Name,
			Start:    s.Interval.Start,
			End:      s.Interval.End,
			Duration: s.Interval.Duration(),
			Cost:     s.Cost,
			Region:   s.Region,
		}
	}
	return views
}

func gapViews(gaps []coverage.Interval) []gapView {
	views := make([]gapView, len(gaps))
	for i, g := range gaps {
		views[i] = gapView{Start: g.Start, End: g.End, Duration: g.Duration()}
	}
	return views
}

// optimizeParamsFromRequest resolves wire-level defaults.
func optimizeParamsFromRequest(req optimizeRequest) (optimizeParams, error) {
	p := optimizeParams{
		start:     defaultWindowStart,
		end:       defaultWindowEnd,
		region:    regionWildcard,
		algorithm: algorithmGreedy,
	}
	if req.TargetStart != nil {
		p.start = *req.TargetStart
	}
	if req.TargetEnd != nil {
		p.end = *req.TargetEnd
	}
	if req.Region != "" {
		p.region = req.Region
	}
	if req.Algorithm != "" {
		p.algorithm = req.Algorithm
	}

	p.sats = make([]fleet.Descriptor, 0, len(req.Satellites))
	for _, in := range req.Satellites {
		d, err := in.descriptor()
		if err != nil {
			return optimizeParams{}, err
		}
		p.sats = append(p.sats, d)
	}
	return p, nil
}

func optimizeHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req optimizeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		p, err := optimizeParamsFromRequest(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		resp, err := runOptimization(p)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// defaultOptimizeHandler runs the optimizer over the built-in demo fleet.
// Window, region, and algorithm may be overridden by query parameters.
func defaultOptimizeHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := optimizeParams{
			sats:      fleet.Demo(),
			start:     defaultWindowStart,
			end:       defaultWindowEnd,
			region:    regionWildcard,
			algorithm: algorithmGreedy,
		}

		q := r.URL.Query()
		if v := q.Get("region"); v != "" {
			p.region = v
		}
		if v := q.Get("algorithm"); v != "" {
			p.algorithm = v
		}
		var err error
		if p.start, err = queryFloat(q.Get("target_start"), p.start); err != nil {
			writeError(w, http.StatusBadRequest, "target_start must be a number")
			return
		}
		if p.end, err = queryFloat(q.Get("target_end"), p.end); err != nil {
			writeError(w, http.StatusBadRequest, "target_end must be a number")
			return
		}

		resp, err := runOptimization(p)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createFleetRequest struct {
	Name       string           `json:"name"`
	Satellites []satelliteInput `json:"satellites"`
}

func createFleetHandler(logger *slog.Logger, fleets *fleet.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fleets == nil {
			writeError(w, http.StatusServiceUnavailable, "fleet storage is disabled")
			return
		}

		var req createFleetRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "fleet name is required")
			return
		}

		sats := make([]fleet.Descriptor, 0, len(req.Satellites))
		for _, in := range req.Satellites {
			d, err := in.descriptor()
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			sats = append(sats, d)
		}
		// Reject invalid intervals before anything is persisted.
		if _, err := fleet.BuildRegistry(sats); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		saved, err := fleets.Save(r.Context(), req.Name, sats)
		if err != nil {
			logger.Error("saving fleet", "error", err)
			writeError(w, http.StatusInternalServerError, "saving fleet failed")
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func listFleetsHandler(logger *slog.Logger, fleets *fleet.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fleets == nil {
			writeError(w, http.StatusServiceUnavailable, "fleet storage is disabled")
			return
		}
		list, err := fleets.List(r.Context())
		if err != nil {
			logger.Error("listing fleets", "error", err)
			writeError(w, http.StatusInternalServerError, "listing fleets failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fleets": list})
	}
}

func getFleetHandler(logger *slog.Logger, fleets *fleet.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fleets == nil {
			writeError(w, http.StatusServiceUnavailable, "fleet storage is disabled")
			return
		}
		f, err := fleets.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

// optimizeFleetHandler runs an optimization over a stored fleet. The
// request body is optional; when present it carries window, region, and
// algorithm overrides.
func optimizeFleetHandler(logger *slog.Logger, fleets *fleet.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fleets == nil {
			writeError(w, http.StatusServiceUnavailable, "fleet storage is disabled")
			return
		}

		f, err := fleets.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		var req optimizeRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if len(req.Satellites) != 0 {
			writeError(w, http.StatusBadRequest, "satellites cannot be overridden for a stored fleet")
			return
		}

		p, err := optimizeParamsFromRequest(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p.sats = f.Satellites

		resp, err := runOptimization(p)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type visibilityRequest struct {
	Station         visibility.GroundStation `json:"station"`
	Satellites      []visibility.TLE         `json:"satellites"`
	Start           string                   `json:"start"`
	HorizonHours    *float64                 `json:"horizon_hours"`
	MinElevationDeg *float64                 `json:"min_elevation"`
}

type visibilityResponse struct {
	Station      visibility.GroundStation      `json:"station"`
	Start        time.Time                     `json:"start"`
	HorizonHours float64                       `json:"horizon_hours"`
	Results      []visibility.SatelliteWindows `json:"results"`
}

func visibilityHandler(logger *slog.Logger, cfg VisibilityConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req visibilityRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if len(req.Satellites) == 0 {
			writeError(w, http.StatusBadRequest, "at least one satellite is required")
			return
		}
		if len(req.Satellites) > cfg.MaxSatellites {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":          "too many satellites",
				"max_satellites": cfg.MaxSatellites,
			})
			return
		}
		if req.Station.LatitudeDeg < -90 || req.Station.LatitudeDeg > 90 ||
			req.Station.LongitudeDeg < -180 || req.Station.LongitudeDeg > 180 {
			writeError(w, http.StatusBadRequest, "station coordinates out of range")
			return
		}

		horizon := 24.0
		if req.HorizonHours != nil {
			horizon = *req.HorizonHours
		}
		if horizon <= 0 || horizon > cfg.MaxHorizonHours {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":             "horizon_hours out of range",
				"max_horizon_hours": cfg.MaxHorizonHours,
			})
			return
		}

		start := time.Now().UTC()
		if req.Start != "" {
			var err error
			if start, err = time.Parse(time.RFC3339, req.Start); err != nil {
				writeError(w, http.StatusBadRequest, "start must be RFC3339")
				return
			}
		}

		minElev := 0.0
		if req.MinElevationDeg != nil {
			minElev = *req.MinElevationDeg
		}

		metrics.IncVisibilityScan()
		results := visibility.Scan(r.Context(), visibility.Request{
			Station:         req.Station,
			Entries:         req.Satellites,
			Start:           start,
			HorizonHours:    horizon,
			MinElevationDeg: minElev,
		})

		writeJSON(w, http.StatusOK, visibilityResponse{
			Station:      req.Station,
			Start:        start,
			HorizonHours: horizon,
			Results:      results,
		})
	}
}

func queryFloat(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coverage.ErrInvalidInterval),
		errors.Is(err, coverage.ErrInvalidWindow),
		errors.Is(err, errUnknownAlgorithm):
		return http.StatusBadRequest
	case errors.Is(err, fleet.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
