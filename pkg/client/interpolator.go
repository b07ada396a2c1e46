package client

import "time"

// Interpolation tuning values. These are empirically chosen display
// constants; changing them changes the perceived motion, not correctness.
const (
	// DefaultTickInterval is how often displayed progress advances between
	// server checkpoints.
	DefaultTickInterval = 150 * time.Millisecond

	// easeFloor is the minimum advance per tick.
	easeFloor = 0.15

	// easeRate is the fraction of the remaining gap covered per tick.
	easeRate = 0.035
)

// Step advances displayed progress one tick toward the ceiling: an
// exponential ease that slows as it approaches the ceiling and never
// overshoots it. Once progress has reached the ceiling it is a no-op, so
// ticks are idempotent relative to checkpoint events.
func Step(progress, ceiling float64) float64 {
	if progress >= ceiling {
		return progress
	}

	step := (ceiling - progress) * easeRate
	if step < easeFloor {
		step = easeFloor
	}

	next := progress + step
	if next > ceiling {
		return ceiling
	}
	return next
}
