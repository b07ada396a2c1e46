// Package analysis provides the application service that executes analysis
// jobs phase by phase and streams their progress.
package analysis

import (
	"context"
	"encoding/json"

	"github.com/ahrav/insight-stream/pkg/insight"
)

// PhaseInput carries everything the backend needs to execute one phase.
type PhaseInput struct {
	// Kind is the analysis kind being run.
	Kind insight.Kind

	// Phase names the phase within the kind's plan.
	Phase string

	// Request is the original client request, including any seeds the
	// client accumulated from earlier recon requests.
	Request *insight.Request

	// PriorResults holds the outputs of phases already completed in this
	// run, keyed by phase name. Optional phases that failed are absent.
	PriorResults map[string]json.RawMessage
}

// Backend executes a single analysis phase against the model provider.
// Implementations must honor context cancellation; the orchestrator polls
// the context around every call.
type Backend interface {
	Execute(ctx context.Context, input PhaseInput) (json.RawMessage, error)
}
