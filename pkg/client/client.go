package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ahrav/insight-stream/pkg/insight"
)

// Client talks to the analysis service. It opens one stream per call and
// maps the non-streaming rejections onto the typed errors in the insight
// package.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client. The default client
// has no overall timeout because streams are long-lived; the server bounds
// stream duration.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze starts an analysis run and invokes onEvent for each decoded event
// in arrival order, returning after the stream ends.
//
// Pre-stream rejections surface as *insight.ValidationError,
// *insight.RateLimitError, or insight.ErrPayloadTooLarge. A stream that ends
// without a terminal event surfaces as insight.ErrStreamTerminated, unless
// ctx was cancelled, in which case the context error is returned and the
// run is a silent cancel, not a failure.
func (c *Client) Analyze(ctx context.Context, kind insight.Kind, req *insight.Request, onEvent func(insight.Event) error) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/analyses/%s", c.baseURL, kind)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return fmt.Errorf("opening stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.rejectionError(resp)
	}

	var sawTerminal bool
	err = readStream(resp.Body, func(evt insight.Event) error {
		if evt.Terminal() {
			sawTerminal = true
		}
		return onEvent(evt)
	})

	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if err != nil {
		return err
	}
	if !sawTerminal {
		return insight.ErrStreamTerminated
	}
	return nil
}

// rejectionError maps a non-streaming response onto a typed error.
func (c *Client) rejectionError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		var retryAfter time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
		return &insight.RateLimitError{RetryAfter: retryAfter}

	case http.StatusRequestEntityTooLarge:
		return insight.ErrPayloadTooLarge

	case http.StatusBadRequest:
		return &insight.ValidationError{Details: errorDetails(resp.Body)}

	default:
		return fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}
}

func errorDetails(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil || payload.Error == "" {
		return "request rejected"
	}
	// The server's message already carries the taxonomy prefix.
	return strings.TrimPrefix(payload.Error, "Validation error: ")
}
