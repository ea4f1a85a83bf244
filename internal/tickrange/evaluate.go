package tickrange

import (
	"errors"
	"fmt"
)

// ErrInvalidSpacing is returned when a tick spacing is zero or negative.
var ErrInvalidSpacing = errors.New("tick spacing must be positive")

// Kind classifies a tick movement between two polls.
type Kind string

const (
	KindNone          Kind = "none"
	KindNewRange      Kind = "new_range"
	KindNearThreshold Kind = "near_threshold"
)

// Evaluation is the outcome of comparing two consecutive tick observations.
type Evaluation struct {
	Previous  int64    `json:"previous_tick"`
	Current   int64    `json:"current_tick"`
	Spacing   int64    `json:"tick_spacing"`
	Threshold int64    `json:"threshold"`
	Range     Range    `json:"range"`
	Boundary  Boundary `json:"boundary,omitempty"`
	Changes   int64    `json:"range_changes"`
	Kind      Kind     `json:"kind"`
}

// Delta is the absolute tick distance between the two observations.
func (e Evaluation) Delta() int64 {
	return abs(e.Current - e.Previous)
}

// NearThreshold reports whether the current tick sits close to a range edge.
func (e Evaluation) NearThreshold() bool {
	return e.Boundary != BoundaryNone
}

// Notify reports whether the evaluation warrants a notification.
func (e Evaluation) Notify() bool {
	return e.Kind != KindNone
}

// Evaluate classifies the move from previous to current.
//
// More than one whole spacing unit of movement is a new range. Otherwise any
// movement that lands within threshold of a range edge is a near-threshold
// event. Everything else, including no movement at all, is KindNone.
func Evaluate(previous, current, spacing, threshold int64) (Evaluation, error) {
	if spacing <= 0 {
		return Evaluation{}, fmt.Errorf("%w: %d", ErrInvalidSpacing, spacing)
	}

	r := RangeOf(current, spacing)
	eval := Evaluation{
		Previous:  previous,
		Current:   current,
		Spacing:   spacing,
		Threshold: threshold,
		Range:     r,
		Boundary:  NearBoundary(current, r, threshold),
		Changes:   RangeChanges(previous, current, spacing),
		Kind:      KindNone,
	}

	switch {
	case eval.Changes > 1:
		eval.Kind = KindNewRange
	case eval.Delta() > 0 && eval.NearThreshold():
		eval.Kind = KindNearThreshold
	}

	return eval, nil
}
