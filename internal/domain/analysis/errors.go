package analysis

import "fmt"

// PhaseError reports a backend failure during a named phase. Required phase
// failures terminate the run with a single error event; optional ones are
// swallowed by the orchestrator.
type PhaseError struct {
	Phase    string
	Optional bool
	Err      error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
