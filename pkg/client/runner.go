package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/insight-stream/pkg/common/logger"
	"github.com/ahrav/insight-stream/pkg/insight"
)

// CompleteFunc receives the final result of a successful run.
type CompleteFunc func(kind insight.Kind, result json.RawMessage)

// Runner owns the operation state machine for every job kind: it guards
// against concurrent starts per key, runs each job as a supervised task with
// its own lifetime, drives displayed progress between checkpoints, and
// records outcomes in the registry.
//
// A job's cancellation is owned here, not by the caller that started it:
// the context passed to the stream is derived from the background context,
// so the job outlives whichever view requested it and is cancelled only
// through Cancel.
type Runner struct {
	client     *Client
	registry   *Registry
	logger     *logger.Logger
	onComplete CompleteFunc
	tick       time.Duration

	mu   sync.Mutex
	runs map[insight.Kind]*run
}

// run is one invocation. Its id is the liveness token: every state mutation
// checks that this run is still the current one for its key, so a
// superseding run cannot be mutated by a predecessor's late events.
type run struct {
	id        uuid.UUID
	kind      insight.Kind
	cancel    context.CancelFunc
	cancelled atomic.Bool

	mu      sync.Mutex
	status  OperationStatus
	ceiling float64
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithOnComplete registers the success callback.
func WithOnComplete(fn CompleteFunc) RunnerOption {
	return func(r *Runner) { r.onComplete = fn }
}

// WithTickInterval overrides the interpolation tick, mainly for tests.
func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.tick = d }
}

// NewRunner creates a Runner backed by the given client and registry.
func NewRunner(c *Client, reg *Registry, log *logger.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		client:   c,
		registry: reg,
		logger:   log,
		tick:     DefaultTickInterval,
		runs:     make(map[insight.Kind]*run),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins a run for the kind unless one is already live, in which case
// it is a no-op and Start reports false. A retained error from a previous
// run is cleared: retry is always a fresh run, never a resume.
func (r *Runner) Start(kind insight.Kind, req *insight.Request) bool {
	r.mu.Lock()

	if existing, ok := r.runs[kind]; ok {
		if !existing.cancelled.Load() {
			r.mu.Unlock()
			return false
		}
		// The previous run was cancelled but has not drained yet; supersede
		// its token. Its liveness checks fail from here on.
		existing.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{
		id:     uuid.New(),
		kind:   kind,
		cancel: cancel,
		status: OperationStatusRunning,
	}
	r.runs[kind] = rn
	r.mu.Unlock()

	r.registry.Set(kind, Operation{
		Key:       kind,
		Label:     kind.Label(),
		Status:    OperationStatusRunning,
		StartedAt: time.Now(),
		runID:     rn.id,
	})

	go r.execute(ctx, rn, req)

	return true
}

// Cancel aborts the live run for the kind, if any. Cancellation is silent:
// the operation is removed without recording an error.
func (r *Runner) Cancel(kind insight.Kind) bool {
	r.mu.Lock()
	rn, ok := r.runs[kind]
	r.mu.Unlock()

	if !ok {
		return false
	}

	rn.cancelled.Store(true)
	rn.cancel()
	return true
}

// Reset dismisses a retained failure for the kind. It is a no-op while a
// run is live.
func (r *Runner) Reset(kind insight.Kind) {
	if op, ok := r.registry.Get(kind); ok && op.Status == OperationStatusError {
		r.registry.Clear(kind)
	}
}

func (r *Runner) execute(ctx context.Context, rn *run, req *insight.Request) {
	ticker := time.NewTicker(r.tick)
	done := make(chan struct{})
	defer func() {
		ticker.Stop()
		close(done)
	}()

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				r.advance(rn)
			}
		}
	}()

	err := r.client.Analyze(ctx, rn.kind, req, func(evt insight.Event) error {
		r.apply(rn, evt)
		return nil
	})

	switch {
	case rn.cancelled.Load() || errors.Is(err, context.Canceled):
		r.drainCancelled(ctx, rn)

	case err != nil:
		// Pre-stream rejections and abnormal stream ends land here; terminal
		// error events were already applied by the event callback.
		r.fail(ctx, rn, err.Error())
	}
}

// apply processes one decoded event for the run, in arrival order.
func (r *Runner) apply(rn *run, evt insight.Event) {
	switch e := evt.(type) {
	case insight.ProgressEvent:
		r.checkpoint(rn, e.Status)
	case insight.CompleteEvent:
		r.complete(rn, e.Result)
	case insight.ErrorEvent:
		r.fail(context.Background(), rn, e.Message)
	}
}

// checkpoint jumps progress to the range start for a known status and moves
// the interpolation ceiling. An unknown status updates only the displayed
// phase name.
func (r *Runner) checkpoint(rn *run, status string) {
	if !r.isCurrent(rn) {
		return
	}

	pr, known := LookupPhase(rn.kind, status)

	rn.mu.Lock()
	if rn.status != OperationStatusRunning {
		rn.mu.Unlock()
		return
	}
	if known {
		rn.ceiling = pr.Ceiling
	}
	rn.mu.Unlock()

	r.updateOwned(rn, func(op *Operation) {
		op.PhaseName = status
		if known && pr.Start > op.Progress {
			op.Progress = pr.Start
		}
	})
}

// advance is one interpolator tick: ease displayed progress toward the
// ceiling. Ticks are idempotent once progress has reached the ceiling and
// are unordered relative to events.
func (r *Runner) advance(rn *run) {
	if !r.isCurrent(rn) {
		return
	}

	rn.mu.Lock()
	if rn.status != OperationStatusRunning {
		rn.mu.Unlock()
		return
	}
	ceiling := rn.ceiling
	rn.mu.Unlock()

	r.updateOwned(rn, func(op *Operation) {
		op.Progress = Step(op.Progress, ceiling)
	})
}

func (r *Runner) complete(rn *run, result json.RawMessage) {
	if !rn.transition(OperationStatusComplete) || !r.remove(rn) {
		return
	}

	// The key is handed over before the registry writes, so a subscriber may
	// chain the next run for this key from the completion notification. Both
	// writes are conditional on still owning the entry; a successor's entry
	// is never touched.
	r.updateOwned(rn, func(op *Operation) {
		op.Status = OperationStatusComplete
		op.Progress = 100
	})
	r.clearOwned(rn)

	if r.onComplete != nil {
		r.onComplete(rn.kind, result)
	}
}

func (r *Runner) fail(ctx context.Context, rn *run, message string) {
	if !rn.transition(OperationStatusError) || !r.remove(rn) {
		return
	}

	r.logger.Warn(ctx, "analysis run failed", "kind", rn.kind, "error", message)

	// The failure is retained until the user retries or dismisses it.
	r.updateOwned(rn, func(op *Operation) {
		op.Status = OperationStatusError
		op.Err = message
	})
}

func (r *Runner) drainCancelled(ctx context.Context, rn *run) {
	if !rn.transition(OperationStatusIdle) {
		return
	}

	r.logger.Debug(ctx, "analysis run cancelled", "kind", rn.kind)

	if r.remove(rn) {
		r.clearOwned(rn)
	}
}

// transition moves the run to a terminal state exactly once.
func (rn *run) transition(target OperationStatus) bool {
	rn.mu.Lock()
	defer rn.mu.Unlock()

	if err := rn.status.ValidateTransition(target); err != nil {
		return false
	}
	rn.status = target
	return true
}

// updateOwned writes to the registry entry only while it still carries this
// run's token.
func (r *Runner) updateOwned(rn *run, fn func(op *Operation)) bool {
	return r.registry.UpdateIf(rn.kind, rn.owns, fn)
}

// clearOwned removes the registry entry only while it still carries this
// run's token.
func (r *Runner) clearOwned(rn *run) bool {
	return r.registry.ClearIf(rn.kind, rn.owns)
}

func (rn *run) owns(op Operation) bool { return op.runID == rn.id }

// isCurrent reports whether the run is still the live one for its key.
func (r *Runner) isCurrent(rn *run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.runs[rn.kind]
	return ok && cur.id == rn.id
}

// remove unregisters the run if it is still current. A false return means a
// superseding run owns the key and the registry must not be touched.
func (r *Runner) remove(rn *run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.runs[rn.kind]
	if !ok || cur.id != rn.id {
		return false
	}
	delete(r.runs, rn.kind)
	return true
}
