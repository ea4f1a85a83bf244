package tickrange

import "fmt"

// Range is the half-open tick interval [Lower, Upper) aligned to tick spacing.
type Range struct {
	Lower int64 `json:"lower_tick"`
	Upper int64 `json:"upper_tick"`
}

// Contains reports whether tick lies inside the range.
func (r Range) Contains(tick int64) bool {
	return tick >= r.Lower && tick < r.Upper
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Lower, r.Upper)
}

// Boundary names the range edge a tick is close to.
type Boundary string

const (
	BoundaryNone  Boundary = ""
	BoundaryLower Boundary = "lower"
	BoundaryUpper Boundary = "upper"
)

// RangeOf returns the spacing-aligned range containing tick.
// spacing must be positive.
func RangeOf(tick, spacing int64) Range {
	lower := floorDiv(tick, spacing) * spacing
	return Range{Lower: lower, Upper: lower + spacing}
}

// NearBoundary reports which edge of r the tick is within threshold of.
// The lower edge wins when both apply.
func NearBoundary(tick int64, r Range, threshold int64) Boundary {
	if tick <= r.Lower+threshold {
		return BoundaryLower
	}
	if tick >= r.Upper-threshold {
		return BoundaryUpper
	}
	return BoundaryNone
}

// RangeChanges returns how many whole spacing units separate two ticks.
func RangeChanges(previous, current, spacing int64) int64 {
	return floorDiv(abs(current-previous), spacing)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
