package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sat/coverd/internal/coverage"
	"github.com/sat/coverd/internal/fleet"
	"github.com/sat/coverd/internal/visibility"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "coverctl",
		Usage:   "Satellite coverage planning from the command line",
		Version: Version,
		Commands: []*cli.Command{
			optimizeCmd(),
			demoCmd(),
			windowsCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// satelliteInput mirrors the server's wire format for a satellite so fleet
// files work unchanged against both the API and the CLI.
type satelliteInput struct {
	Name   string   `json:"name"`
	Start  float64  `json:"start"`
	End    float64  `json:"end"`
	Cost   *float64 `json:"cost"`
	Region string   `json:"region"`
}

type fleetInput struct {
	Name       string           `json:"name"`
	Satellites []satelliteInput `json:"satellites"`
}

type coverResult struct {
	Window    coverage.Interval    `json:"window"`
	Region    string               `json:"region"`
	Algorithm string               `json:"algorithm"`
	Selected  []coverage.Satellite `json:"selected"`
	Summary   coverage.Summary     `json:"summary"`
}

func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "start", Value: 0, Usage: "Target window start (hours)"},
		&cli.Float64Flag{Name: "end", Value: 24, Usage: "Target window end (hours)"},
		&cli.StringFlag{Name: "region", Aliases: []string{"r"}, Usage: "Restrict selection to one region"},
		&cli.StringFlag{Name: "algorithm", Aliases: []string{"a"}, Value: "greedy", Usage: "Cover algorithm: greedy|mincost"},
	}
}

// optimizeCmd creates the optimize command.
func optimizeCmd() *cli.Command {
	return &cli.Command{
		Name:  "optimize",
		Usage: "Run a minimum cover over a fleet file (or stdin)",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Fleet JSON file (default: stdin)"},
		}, windowFlags()...),
		Action: func(c *cli.Context) error {
			var r io.Reader = os.Stdin
			if path := c.String("file"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				defer f.Close()
				r = f
			}

			var in fleetInput
			dec := json.NewDecoder(r)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&in); err != nil {
				return cli.Exit(fmt.Sprintf("invalid fleet file: %v", err), 1)
			}

			sats := make([]fleet.Descriptor, 0, len(in.Satellites))
			for _, s := range in.Satellites {
				d := fleet.Descriptor{Name: s.Name, Start: s.Start, End: s.End, Cost: 1.0, Region: "Global"}
				if s.Cost != nil {
					if *s.Cost < 0 {
						return cli.Exit(fmt.Sprintf("satellite %q: cost must be non-negative", s.Name), 1)
					}
					d.Cost = *s.Cost
				}
				if s.Region != "" {
					d.Region = s.Region
				}
				sats = append(sats, d)
			}

			return runCover(c, sats)
		},
	}
}

// demoCmd creates the demo command.
func demoCmd() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Run the optimizer over the built-in demo fleet",
		Flags: windowFlags(),
		Action: func(c *cli.Context) error {
			return runCover(c, fleet.Demo())
		},
	}
}

// runCover executes the selected cover algorithm and prints the result.
func runCover(c *cli.Context, sats []fleet.Descriptor) error {
	reg, err := fleet.BuildRegistry(sats)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	opt, err := coverage.NewOptimizer(reg, c.Float64("start"), c.Float64("end"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	filter := coverage.AllRegions()
	region := "All"
	if v := c.String("region"); v != "" && v != "All" {
		filter = coverage.InRegion(v)
		region = v
	}

	var (
		selected []coverage.Satellite
		gaps     []coverage.Interval
	)
	algorithm := c.String("algorithm")
	switch algorithm {
	case "greedy":
		selected, gaps = opt.MinimumCover(filter)
	case "mincost":
		selected, _, gaps = opt.MinimumCostCover(filter)
	default:
		return cli.Exit(fmt.Sprintf("unknown algorithm %q (want \"greedy\" or \"mincost\")", algorithm), 1)
	}

	return outputJSON(coverResult{
		Window:    opt.Window(),
		Region:    region,
		Algorithm: algorithm,
		Selected:  selected,
		Summary:   opt.SummarizeCover(selected, gaps),
	})
}

// windowsCmd creates the windows command.
func windowsCmd() *cli.Command {
	return &cli.Command{
		Name:  "windows",
		Usage: "Compute visibility windows for TLE entries over a ground station",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tle-file", Aliases: []string{"t"}, Usage: "3-line TLE file (default: stdin)"},
			&cli.Float64Flag{Name: "lat", Required: true, Usage: "Station latitude (degrees)"},
			&cli.Float64Flag{Name: "lon", Required: true, Usage: "Station longitude (degrees)"},
			&cli.Float64Flag{Name: "alt", Value: 0, Usage: "Station altitude (km)"},
			&cli.StringFlag{Name: "at", Usage: "Scan start (RFC3339, default: now)"},
			&cli.Float64Flag{Name: "horizon", Value: 24, Usage: "Scan horizon (hours)"},
			&cli.Float64Flag{Name: "min-elevation", Value: 0, Usage: "Minimum elevation (degrees)"},
		},
		Action: func(c *cli.Context) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			var r io.Reader = os.Stdin
			if path := c.String("tle-file"); path != "" {
				f, err := os.Open(path)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				defer f.Close()
				r = f
			}

			entries, err := visibility.Parse(r, logger)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if len(entries) == 0 {
				return cli.Exit("no valid TLE entries found", 1)
			}

			lat := c.Float64("lat")
			lon := c.Float64("lon")
			if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return cli.Exit("station coordinates out of range", 1)
			}

			start := time.Now().UTC()
			if v := c.String("at"); v != "" {
				if start, err = time.Parse(time.RFC3339, v); err != nil {
					return cli.Exit(fmt.Sprintf("invalid --at value: %v", err), 1)
				}
			}

			horizon := c.Float64("horizon")
			if horizon <= 0 {
				return cli.Exit("horizon must be positive", 1)
			}

			results := visibility.Scan(c.Context, visibility.Request{
				Station: visibility.GroundStation{
					LatitudeDeg:  lat,
					LongitudeDeg: lon,
					AltitudeKm:   c.Float64("alt"),
				},
				Entries:         entries,
				Start:           start,
				HorizonHours:    horizon,
				MinElevationDeg: c.Float64("min-elevation"),
			})

			return outputJSON(map[string]any{
				"start":         start,
				"horizon_hours": horizon,
				"results":       results,
			})
		},
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
