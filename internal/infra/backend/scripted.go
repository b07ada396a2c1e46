package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	appanalysis "github.com/ahrav/insight-stream/internal/app/analysis"
)

// Scripted is an in-memory Backend that returns canned results per phase.
// It simulates model latency without calling any provider, which makes it
// useful for local development and transport tests.
type Scripted struct {
	mu      sync.RWMutex
	results map[string]json.RawMessage
	errs    map[string]error
	delay   time.Duration
}

// NewScripted creates a scripted backend with the given per-call delay.
func NewScripted(delay time.Duration) *Scripted {
	return &Scripted{
		results: make(map[string]json.RawMessage),
		errs:    make(map[string]error),
		delay:   delay,
	}
}

// SetResult scripts the result returned for a phase.
func (s *Scripted) SetResult(phase string, result json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[phase] = result
}

// SetError scripts a failure for a phase.
func (s *Scripted) SetError(phase string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[phase] = err
}

// Execute returns the scripted outcome for the phase after the configured
// delay, honoring context cancellation while waiting.
func (s *Scripted) Execute(ctx context.Context, input appanalysis.PhaseInput) (json.RawMessage, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.errs[input.Phase]; ok {
		return nil, err
	}
	if result, ok := s.results[input.Phase]; ok {
		return result, nil
	}

	// Unscripted phases succeed with a placeholder, so simple smoke runs
	// need no setup.
	return json.RawMessage(fmt.Sprintf(`{"phase":%q,"kind":%q}`, input.Phase, input.Kind)), nil
}
