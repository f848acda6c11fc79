package coverage

// Interval is a contiguous span [Start, End) on the shared mission timeline,
// measured in fractional hours. Zero-length intervals are valid but carry no
// coverage.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the length of the interval in hours.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Overlaps reports whether two intervals intersect. Intervals that only
// touch at an endpoint do not overlap; a zero-length interval strictly
// inside another does.
func (iv Interval) Overlaps(other Interval) bool {
	return !(iv.End <= other.Start || iv.Start >= other.End)
}
