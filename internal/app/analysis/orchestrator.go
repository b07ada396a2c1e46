package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/insight-stream/internal/domain/analysis"
	"github.com/ahrav/insight-stream/pkg/common/logger"
	"github.com/ahrav/insight-stream/pkg/insight"
)

// EventSink receives the events produced by a run, in order. The stream
// writer implements this; tests substitute a recording sink.
type EventSink interface {
	Send(evt insight.Event) error
}

// Orchestrator runs the phases of an analysis request in sequence, emitting
// a progress event per phase and exactly one terminal event per run that is
// not cancelled.
type Orchestrator struct {
	backend Backend
	logger  *logger.Logger
	tracer  trace.Tracer
}

// NewOrchestrator creates an Orchestrator with the provided dependencies.
func NewOrchestrator(backend Backend, logger *logger.Logger, tracer trace.Tracer) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		logger:  logger,
		tracer:  tracer,
	}
}

// Run executes the phase plan for the request's kind.
//
// Failure semantics: an optional phase failure is logged and the pipeline
// continues without its output; a required phase failure emits a single
// error event and stops. There is no automatic retry anywhere in the
// pipeline; retry is a fresh client-initiated request.
//
// Cancellation: the context is polled before and after every backend call.
// Once cancellation is observed no further events are emitted and Run
// returns the context error; the client distinguishes "aborted" from
// "errored" by its own cancellation state, not by an event.
func (o *Orchestrator) Run(ctx context.Context, kind insight.Kind, req *insight.Request, sink EventSink) error {
	ctx, span := o.tracer.Start(ctx, "orchestrator.analysis.run",
		trace.WithAttributes(attribute.String("kind", kind.String())))
	defer span.End()

	plan := domain.PlanFor(kind)
	if len(plan) == 0 {
		return fmt.Errorf("no phase plan for kind %q", kind)
	}

	prior := make(map[string]json.RawMessage, len(plan))
	var final json.RawMessage

	for _, phase := range plan {
		if err := ctx.Err(); err != nil {
			span.AddEvent("run_cancelled", trace.WithAttributes(attribute.String("phase", phase.Name)))
			return err
		}

		if err := sink.Send(insight.ProgressEvent{Status: phase.Status}); err != nil {
			return fmt.Errorf("sending progress event: %w", err)
		}

		result, err := o.runPhase(ctx, kind, phase, req, prior)

		if cerr := ctx.Err(); cerr != nil {
			span.AddEvent("run_cancelled", trace.WithAttributes(attribute.String("phase", phase.Name)))
			return cerr
		}

		if err != nil {
			if phase.Optional {
				// Best-effort phase: downstream phases run without its output.
				o.logger.Warn(ctx, "optional phase failed, continuing",
					"kind", kind,
					"phase", phase.Name,
					"error", err,
				)
				continue
			}

			span.RecordError(err)
			span.SetStatus(codes.Error, "required phase failed")
			o.logger.Error(ctx, "required phase failed",
				"kind", kind,
				"phase", phase.Name,
				"error", err,
			)

			if serr := sink.Send(insight.ErrorEvent{Message: err.Error()}); serr != nil {
				return fmt.Errorf("sending error event: %w", serr)
			}
			return &domain.PhaseError{Phase: phase.Name, Err: err}
		}

		prior[phase.Name] = result
		final = result
	}

	if err := sink.Send(insight.CompleteEvent{Kind: kind, Result: final}); err != nil {
		return fmt.Errorf("sending complete event: %w", err)
	}

	span.SetStatus(codes.Ok, "run complete")
	o.logger.Info(ctx, "analysis run complete", "kind", kind, "phases", len(plan))

	return nil
}

func (o *Orchestrator) runPhase(
	ctx context.Context,
	kind insight.Kind,
	phase domain.Phase,
	req *insight.Request,
	prior map[string]json.RawMessage,
) (json.RawMessage, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.analysis.run_phase",
		trace.WithAttributes(
			attribute.String("kind", kind.String()),
			attribute.String("phase", phase.Name),
			attribute.Bool("optional", phase.Optional),
		))
	defer span.End()

	result, err := o.backend.Execute(ctx, PhaseInput{
		Kind:         kind,
		Phase:        phase.Name,
		Request:      req,
		PriorResults: prior,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend execution failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "phase complete")
	return result, nil
}
