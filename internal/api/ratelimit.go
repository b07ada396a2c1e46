package api

import (
	"sync"
	"time"
)

// pruneThreshold bounds the identity map; when exceeded, expired windows are
// swept during the next check.
const pruneThreshold = 1024

// FixedWindowLimiter rejects requests beyond a fixed budget per window,
// keyed by client identity. Rejections happen before any stream is opened
// and carry a retry-after hint of the window remainder.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*requestWindow

	// nowFn is swapped in tests to control the clock.
	nowFn func() time.Time
}

type requestWindow struct {
	start time.Time
	count int
}

// NewFixedWindowLimiter creates a limiter allowing limit requests per window
// per identity.
func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*requestWindow),
		nowFn:   time.Now,
	}
}

// Check records a request for the identity and reports whether it is within
// budget. When rejected, retryAfter advises when the current window resets.
func (l *FixedWindowLimiter) Check(identity string) (allowed bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()

	if len(l.windows) > pruneThreshold {
		l.pruneLocked(now)
	}

	w, ok := l.windows[identity]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[identity] = &requestWindow{start: now, count: 1}
		return true, 0
	}

	if w.count < l.limit {
		w.count++
		return true, 0
	}

	return false, l.window - now.Sub(w.start)
}

func (l *FixedWindowLimiter) pruneLocked(now time.Time) {
	for identity, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, identity)
		}
	}
}
