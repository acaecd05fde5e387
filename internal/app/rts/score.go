// Package rts computes the Recovery Trend Score, a smoothed 0–100 metric
// summarizing a patient's motor-control progress across sessions.
package rts

import (
	"errors"
	"math"

	"github.com/parthjod/neuroblock/internal/app/ds"
)

// Blend weights for the exponential-smoothing-style update.
// They must sum to 1.0.
const (
	weightHistory = 0.7
	weightCurrent = 0.3
)

// BaselineScore is assumed for a patient's first-ever session, when there
// is no previous trend score to smooth against.
const BaselineScore = 60

// deadBand is the ± threshold around the previous score inside which the
// status stays Stable, so noise does not flip the classification.
const deadBand = 2

// ErrNoMetrics is returned when a session attempt produced no exercise
// metrics. Callers must treat this as a degenerate attempt and abort
// before any audit or persistence write.
var ErrNoMetrics = errors.New("no exercise metrics recorded")

// Result is the outcome of one trend update.
type Result struct {
	// NewRTS is the updated Recovery Trend Score, always in [0,100].
	NewRTS int

	// Status classifies the change against the previous score:
	// Improvement, Stable or Decline.
	Status string

	// CurrentScore is the raw mean composite of this session's metrics,
	// before blending. Kept for the per-session breakdown.
	CurrentScore float64
}

// ComputeTrend blends the previous trend score with the current session's
// metrics and classifies the movement of the score.
//
// Formula (matching the dashboard's original scoring):
//
//	current = mean over metrics of (rangeOfMotion+stability+accuracy)/3
//	newRTS  = round(previous.*0.7 + current*0.3), clamped to [0,100]
//
// Status is Improvement iff newRTS > previous+2 (strict), Decline iff
// newRTS < previous-2, otherwise Stable. previous == nil means a first
// session and defaults to BaselineScore.
//
// Pure: no side effects, deterministic given inputs.
func ComputeTrend(previous *int, metrics []ds.ExerciseMetric) (Result, error) {
	if len(metrics) == 0 {
		return Result{}, ErrNoMetrics
	}

	prev := BaselineScore
	if previous != nil {
		prev = *previous
	}

	var sum float64
	for _, m := range metrics {
		sum += m.Composite()
	}
	current := sum / float64(len(metrics))

	// math.Round ties away from zero, which is the rounding the score
	// contract requires.
	newRTS := int(math.Round(float64(prev)*weightHistory + current*weightCurrent))
	newRTS = clamp(newRTS, 0, 100)

	return Result{
		NewRTS:       newRTS,
		Status:       statusFor(prev, newRTS),
		CurrentScore: current,
	}, nil
}

// statusFor maps the score movement to a session status.
func statusFor(prev, next int) string {
	switch {
	case next > prev+deadBand:
		return ds.StatusImprovement
	case next < prev-deadBand:
		return ds.StatusDecline
	default:
		return ds.StatusStable
	}
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
