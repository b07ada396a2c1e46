// Package stream implements the server side of the event transport: a
// server-sent-events writer with periodic keepalives.
package stream

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ahrav/insight-stream/pkg/insight"
)

// DefaultHeartbeatInterval is how often a keepalive comment frame is written
// while the stream is open. Heartbeats defeat idle-connection teardown by
// proxies; they do not extend hard request duration limits.
const DefaultHeartbeatInterval = 15 * time.Second

// Writer frames analysis events onto an HTTP response as an SSE stream.
//
// All writes are serialized through a mutex shared with the heartbeat
// goroutine. Close is idempotent; any Send after Close is a silent no-op. A
// failed write to the underlying connection marks the writer closed instead
// of surfacing an error from a torn-down response.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex // guards writes and closed
	closed bool
	stop   chan struct{}
}

// NewWriter writes the SSE response headers and starts the heartbeat loop.
// It fails if the underlying ResponseWriter cannot stream.
func NewWriter(w http.ResponseWriter, heartbeat time.Duration) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	// Hint reverse proxies (nginx) not to buffer the stream.
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sw := &Writer{
		w:       w,
		flusher: flusher,
		stop:    make(chan struct{}),
	}

	go sw.heartbeatLoop(heartbeat)

	return sw, nil
}

// Send frames a single event as `data: <json>\n\n` and flushes. Sending on
// a closed writer is a silent no-op.
func (sw *Writer) Send(evt insight.Event) error {
	data, err := insight.MarshalEvent(evt)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return nil
	}

	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		// The connection is gone; treat the write failure as a close.
		sw.closeLocked()
		return nil
	}
	sw.flusher.Flush()

	return nil
}

// Close stops the heartbeat loop and marks the stream closed. Safe to call
// any number of times.
func (sw *Writer) Close() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.closeLocked()
}

func (sw *Writer) closeLocked() {
	if sw.closed {
		return
	}
	sw.closed = true
	close(sw.stop)
}

func (sw *Writer) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.stop:
			return
		case <-ticker.C:
			sw.mu.Lock()
			if sw.closed {
				sw.mu.Unlock()
				return
			}
			if _, err := fmt.Fprint(sw.w, ":\n\n"); err != nil {
				sw.closeLocked()
				sw.mu.Unlock()
				return
			}
			sw.flusher.Flush()
			sw.mu.Unlock()
		}
	}
}
