package client

import (
	"sync"

	"github.com/ahrav/insight-stream/pkg/insight"
)

// Registry is a process-wide, keyed, subscribable store of operations. Any
// view can read a snapshot for a key and render progress or offer
// cancellation, independent of which caller started the job. Each key is
// written only by the runner that owns it.
type Registry struct {
	mu      sync.RWMutex
	ops     map[insight.Kind]Operation
	subs    map[int]func(key insight.Kind, op *Operation)
	nextSub int
}

// NewRegistry creates an empty registry. One registry is created at process
// start and lives until process exit.
func NewRegistry() *Registry {
	return &Registry{
		ops:  make(map[insight.Kind]Operation),
		subs: make(map[int]func(insight.Kind, *Operation)),
	}
}

// Set stores the operation for its key and notifies subscribers.
func (r *Registry) Set(key insight.Kind, op Operation) {
	r.mu.Lock()
	r.ops[key] = op
	subs := r.subscribersLocked()
	r.mu.Unlock()

	for _, fn := range subs {
		fn(key, &op)
	}
}

// Update applies fn to the stored operation under the lock, then notifies
// subscribers. It reports whether an operation existed for the key. The
// read-modify-write is atomic, so checkpoint jumps and interpolator ticks
// cannot overwrite each other.
func (r *Registry) Update(key insight.Kind, fn func(op *Operation)) bool {
	r.mu.Lock()
	op, ok := r.ops[key]
	if !ok {
		r.mu.Unlock()
		return false
	}
	fn(&op)
	r.ops[key] = op
	subs := r.subscribersLocked()
	r.mu.Unlock()

	for _, sub := range subs {
		sub(key, &op)
	}
	return true
}

// UpdateIf applies fn under the lock only when pred accepts the current
// operation. Subscribers are notified only when fn ran. It reports whether
// the update was applied.
func (r *Registry) UpdateIf(key insight.Kind, pred func(op Operation) bool, fn func(op *Operation)) bool {
	r.mu.Lock()
	op, ok := r.ops[key]
	if !ok || !pred(op) {
		r.mu.Unlock()
		return false
	}
	fn(&op)
	r.ops[key] = op
	subs := r.subscribersLocked()
	r.mu.Unlock()

	for _, sub := range subs {
		sub(key, &op)
	}
	return true
}

// ClearIf removes the operation for the key only when pred accepts it,
// notifying subscribers with a nil operation. It reports whether an entry
// was removed.
func (r *Registry) ClearIf(key insight.Kind, pred func(op Operation) bool) bool {
	r.mu.Lock()
	op, ok := r.ops[key]
	if !ok || !pred(op) {
		r.mu.Unlock()
		return false
	}
	delete(r.ops, key)
	subs := r.subscribersLocked()
	r.mu.Unlock()

	for _, fn := range subs {
		fn(key, nil)
	}
	return true
}

// Get returns a snapshot of the operation for the key, if any.
func (r *Registry) Get(key insight.Kind) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[key]
	return op, ok
}

// Clear removes the operation for the key and notifies subscribers with a
// nil operation.
func (r *Registry) Clear(key insight.Kind) {
	r.mu.Lock()
	delete(r.ops, key)
	subs := r.subscribersLocked()
	r.mu.Unlock()

	for _, fn := range subs {
		fn(key, nil)
	}
}

// Snapshot returns a copy of every tracked operation.
func (r *Registry) Snapshot() map[insight.Kind]Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[insight.Kind]Operation, len(r.ops))
	for k, op := range r.ops {
		out[k] = op
	}
	return out
}

// Subscribe registers a listener invoked on every Set and Clear. The
// operation pointer is nil on Clear. It returns an unsubscribe func.
func (r *Registry) Subscribe(fn func(key insight.Kind, op *Operation)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Registry) subscribersLocked() []func(insight.Kind, *Operation) {
	subs := make([]func(insight.Kind, *Operation), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	return subs
}
