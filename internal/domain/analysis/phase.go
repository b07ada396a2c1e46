// Package analysis holds the server-side domain model for analysis jobs:
// phase plans per analysis kind and the failure semantics of a phase.
package analysis

import "github.com/ahrav/insight-stream/pkg/insight"

// Phase is one sequential unit of work within a job. The orchestrator emits
// the phase's status as a progress checkpoint before calling the backend.
type Phase struct {
	// Name identifies the phase to the backend and in logs.
	Name string

	// Status is the exact checkpoint text streamed to the client.
	Status string

	// Optional phases are best-effort: a failure is logged and the pipeline
	// continues without their output.
	Optional bool
}

// PlanFor returns the ordered phase plan for an analysis kind.
//
// Multi-phase work is deliberately split across kinds rather than held in
// one long request: recon and deep recon are separate client-invoked
// requests whose results seed later ones, so the client holds the saga's
// accumulated state and a failed late phase can be retried without
// repeating the expensive early ones.
func PlanFor(kind insight.Kind) []Phase {
	switch kind {
	case insight.KindCPS:
		return []Phase{
			{Name: "research", Status: insight.StatusResearching, Optional: true},
			{Name: "pass_one", Status: insight.StatusPassOne},
			{Name: "pass_two", Status: insight.StatusPassTwo},
			{Name: "pass_three", Status: insight.StatusPassThree},
			{Name: "pass_four", Status: insight.StatusPassFour},
		}
	case insight.KindSubtext:
		return []Phase{{Name: "subtext", Status: insight.StatusSubtext}}
	case insight.KindCompatibility:
		return []Phase{{Name: "compatibility", Status: insight.StatusCompatibility}}
	case insight.KindRecon:
		return []Phase{{Name: "recon", Status: insight.StatusRecon}}
	case insight.KindDeepRecon:
		return []Phase{{Name: "deep_recon", Status: insight.StatusDeepRecon}}
	default:
		return nil
	}
}
