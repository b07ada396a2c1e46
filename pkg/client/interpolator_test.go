package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepAdvancesTowardCeiling(t *testing.T) {
	next := Step(10, 40)
	assert.Greater(t, next, 10.0)
	assert.LessOrEqual(t, next, 40.0)

	// Proportional step while the gap is large.
	assert.InDelta(t, 10+(40-10)*0.035, next, 1e-9)
}

func TestStepFloorsSmallAdvances(t *testing.T) {
	// Near the ceiling the proportional step falls below the floor.
	next := Step(39, 40)
	assert.InDelta(t, 39.15, next, 1e-9)
}

func TestStepNeverOvershootsCeiling(t *testing.T) {
	progress := 10.0
	for i := 0; i < 10_000; i++ {
		progress = Step(progress, 40)
		require.LessOrEqual(t, progress, 40.0)
	}
	assert.Equal(t, 40.0, progress)
}

func TestStepIsMonotonic(t *testing.T) {
	progress := 0.0
	for i := 0; i < 1_000; i++ {
		next := Step(progress, 95)
		require.GreaterOrEqual(t, next, progress)
		progress = next
	}
}

func TestStepIdempotentAtOrAboveCeiling(t *testing.T) {
	assert.Equal(t, 40.0, Step(40, 40))

	// A checkpoint may move the ceiling below current progress; ticks must
	// never regress.
	assert.Equal(t, 50.0, Step(50, 40))
}
