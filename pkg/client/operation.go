// Package client is the SDK side of the analysis pipeline: it opens analysis
// streams, decodes events, drives displayed progress between server
// checkpoints, and tracks live operations in a process-wide registry so any
// caller can observe or cancel a run regardless of who started it.
package client

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/insight-stream/pkg/insight"
)

// OperationStatus represents the current state of a tracked operation. It
// enables tracking of the operation lifecycle from start through completion,
// failure, or reset.
type OperationStatus string

const (
	// OperationStatusIdle indicates no live run exists for the key.
	OperationStatusIdle OperationStatus = "IDLE"

	// OperationStatusRunning indicates a stream is open and events are being
	// applied.
	OperationStatusRunning OperationStatus = "RUNNING"

	// OperationStatusComplete indicates the run finished successfully.
	OperationStatusComplete OperationStatus = "COMPLETE"

	// OperationStatusError indicates the run failed; the error is retained
	// until an explicit reset or retry.
	OperationStatusError OperationStatus = "ERROR"
)

func (s OperationStatus) String() string { return string(s) }

// ValidateTransition checks if a status transition is valid and returns an
// error if not.
func (s OperationStatus) ValidateTransition(target OperationStatus) error {
	if !s.isValidTransition(target) {
		return fmt.Errorf("invalid operation status transition from %s to %s", s, target)
	}
	return nil
}

// isValidTransition enforces the operation lifecycle rules to prevent
// invalid state changes.
func (s OperationStatus) isValidTransition(target OperationStatus) bool {
	switch s {
	case OperationStatusIdle:
		// From Idle, can only start running.
		return target == OperationStatusRunning
	case OperationStatusRunning:
		// Running ends in exactly one of Complete or Error, or returns to
		// Idle on cancellation.
		return target == OperationStatusComplete ||
			target == OperationStatusError ||
			target == OperationStatusIdle
	case OperationStatusComplete, OperationStatusError:
		// Terminal states clear back to Idle on reset or retry.
		return target == OperationStatusIdle
	default:
		return false
	}
}

// Operation is one analysis job as tracked by the client. At most one live
// Operation exists per key; the kind doubles as the key.
type Operation struct {
	// Key identifies the job kind, not the invocation.
	Key insight.Kind

	// Label is the human-readable name for display.
	Label string

	// PhaseName is the last status string received from the server.
	PhaseName string

	// Progress is displayed progress, 0-100. Non-decreasing while the
	// operation is running.
	Progress float64

	// Status is the lifecycle state.
	Status OperationStatus

	// Err holds the failure message when Status is error. At most one of
	// Err and a complete status may be set.
	Err string

	// StartedAt is used only for elapsed-time display.
	StartedAt time.Time

	// runID ties the entry to the run that wrote it, so a finished run can
	// never clobber a successor's entry.
	runID uuid.UUID
}

// Elapsed returns the wall-clock time since the operation started.
func (o Operation) Elapsed() time.Duration {
	if o.StartedAt.IsZero() {
		return 0
	}
	return time.Since(o.StartedAt)
}
