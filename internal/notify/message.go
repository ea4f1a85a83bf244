package notify

import (
	"fmt"
	"html"
	"strings"

	"tickwatch/internal/tickrange"
)

// PoolLabel identifies a pool in messages.
type PoolLabel struct {
	ID   uint64
	Name string
}

func (p PoolLabel) String() string {
	return fmt.Sprintf("Pool %d (%s)", p.ID, html.EscapeString(p.Name))
}

// MonitoringStartedMessage announces that a pool is being watched.
func MonitoringStartedMessage(pool PoolLabel, threshold int64) string {
	return fmt.Sprintf("Monitoring started: Pool #%d (%s) [threshold = %d]", pool.ID, html.EscapeString(pool.Name), threshold)
}

// NewRangeMessage reports a move of more than one spacing unit.
func NewRangeMessage(pool PoolLabel, eval tickrange.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>🆕 %s has a new tick range!</b>\n\n", pool)
	fmt.Fprintf(&b, "• New Range: %d to %d\n", eval.Range.Lower, eval.Range.Upper)
	fmt.Fprintf(&b, "• Previous Tick: %d\n", eval.Previous)
	fmt.Fprintf(&b, "• Current Tick: %d\n", eval.Current)
	fmt.Fprintf(&b, "• Change: %d ticks (%d ranges)", eval.Delta(), eval.Changes)
	return b.String()
}

// NearThresholdMessage reports a tick close to a range boundary.
func NearThresholdMessage(pool PoolLabel, eval tickrange.Evaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>⚠️ %s is near the %s threshold</b>\n\n", pool, eval.Boundary)
	fmt.Fprintf(&b, "• Range: %d to %d\n", eval.Range.Lower, eval.Range.Upper)
	fmt.Fprintf(&b, "• Previous Tick: %d\n", eval.Previous)
	fmt.Fprintf(&b, "• Current Tick: %d\n", eval.Current)
	fmt.Fprintf(&b, "• Alert Threshold: %d ticks", eval.Threshold)
	return b.String()
}

// EvaluationMessage picks the message for eval, or "" when nothing is due.
func EvaluationMessage(pool PoolLabel, eval tickrange.Evaluation) string {
	switch eval.Kind {
	case tickrange.KindNewRange:
		return NewRangeMessage(pool, eval)
	case tickrange.KindNearThreshold:
		return NearThresholdMessage(pool, eval)
	default:
		return ""
	}
}

// DigestLine is one pool's row in a status digest.
type DigestLine struct {
	Pool    PoolLabel
	HasTick bool
	Tick    int64
	Range   tickrange.Range
}

// DigestMessage summarizes the last known tick of every pool.
func DigestMessage(lines []DigestLine) string {
	var b strings.Builder
	b.WriteString("<b>📊 Tick status</b>\n")
	for _, line := range lines {
		if !line.HasTick {
			fmt.Fprintf(&b, "\n• %s: no data yet", line.Pool)
			continue
		}
		fmt.Fprintf(&b, "\n• %s: tick %d in %d to %d", line.Pool, line.Tick, line.Range.Lower, line.Range.Upper)
	}
	return b.String()
}
