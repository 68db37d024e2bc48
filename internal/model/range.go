package model

import "fmt"

// Range is a closed interval [Min, Max] of acceptable component versions.
// Construct with NewRange; the zero value is the single-point range [0, 0].
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// NewRange returns the interval [min, max].
// Panics if min > max: an inverted range is a programming error, not a
// negotiation outcome. Callers at the wire boundary validate first.
func NewRange(min, max int) Range {
	if min > max {
		panic(fmt.Sprintf("model: inverted version range [%d,%d]", min, max))
	}
	return Range{Min: min, Max: max}
}

// PointRange returns the range containing exactly v.
func PointRange(v int) Range {
	return Range{Min: v, Max: v}
}

// Contains reports whether min <= v <= max.
func (r Range) Contains(v int) bool {
	return r.Min <= v && v <= r.Max
}

// Overlaps reports whether r and other share at least one version.
func (r Range) Overlaps(other Range) bool {
	return max(r.Min, other.Min) <= min(r.Max, other.Max)
}

// Overlap returns the intersection of r and other.
// Only meaningful when Overlaps is true; panics otherwise.
func (r Range) Overlap(other Range) Range {
	if !r.Overlaps(other) {
		panic(fmt.Sprintf("model: ranges %s and %s do not overlap", r, other))
	}
	return Range{
		Min: max(r.Min, other.Min),
		Max: min(r.Max, other.Max),
	}
}

// String renders the range as [min,max].
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Min, r.Max)
}
