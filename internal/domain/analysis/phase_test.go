package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/insight-stream/pkg/insight"
)

func TestPlanFor(t *testing.T) {
	t.Parallel()

	t.Run("every kind has a plan", func(t *testing.T) {
		t.Parallel()

		for _, kind := range insight.Kinds() {
			plan := PlanFor(kind)
			require.NotEmpty(t, plan, "kind %s", kind)

			// The final phase must be required: its output is the result.
			assert.False(t, plan[len(plan)-1].Optional, "kind %s", kind)

			for _, p := range plan {
				assert.NotEmpty(t, p.Name)
				assert.NotEmpty(t, p.Status)
			}
		}
	})

	t.Run("cps runs a best-effort research pre-pass then four passes", func(t *testing.T) {
		t.Parallel()

		plan := PlanFor(insight.KindCPS)
		require.Len(t, plan, 5)
		assert.True(t, plan[0].Optional)
		for _, p := range plan[1:] {
			assert.False(t, p.Optional)
		}
	})

	t.Run("unknown kind has no plan", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, PlanFor(insight.Kind("horoscope")))
	})
}
