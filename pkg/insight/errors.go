package insight

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports a malformed request. It is rejected with an
// ordinary JSON response before a stream is opened.
type ValidationError struct {
	Details string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation error: %s", e.Details)
}

// RateLimitError reports a rejected request due to the caller exceeding its
// request budget. RetryAfter advises when the window resets.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// ErrPayloadTooLarge reports a request body exceeding the server's size
// budget. Rejected before a stream is opened.
var ErrPayloadTooLarge = errors.New("request payload exceeds the maximum allowed size")

// ErrStreamTerminated reports a stream that ended without a terminal event
// and without the caller cancelling. The run is treated as failed with this
// generic message.
var ErrStreamTerminated = errors.New("analysis stream ended unexpectedly")
