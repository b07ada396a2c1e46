// Package backend provides Analysis Backend adapters: an HTTP adapter for a
// real model endpoint and a scripted in-memory adapter for tests and local
// development.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appanalysis "github.com/ahrav/insight-stream/internal/app/analysis"
	"github.com/ahrav/insight-stream/pkg/common"
	"github.com/ahrav/insight-stream/pkg/common/logger"
)

// HTTPConfig configures the HTTP backend adapter.
type HTTPConfig struct {
	// Endpoint is the upstream model API URL phase executions are POSTed to.
	Endpoint string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds a single phase execution.
	Timeout time.Duration

	// RPS and Burst pace calls to the upstream endpoint.
	RPS   float64
	Burst int
}

// HTTPBackend executes analysis phases against an upstream model endpoint.
// It performs no retries: a failed phase is reported to the orchestrator and
// retry is always a fresh client-initiated run.
type HTTPBackend struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *common.RateLimiter
	logger   *logger.Logger
	tracer   trace.Tracer
}

// NewHTTPBackend creates an HTTP backend adapter.
func NewHTTPBackend(cfg HTTPConfig, log *logger.Logger, tracer trace.Tracer) *HTTPBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}

	rps := cfg.RPS
	if rps == 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst == 0 {
		burst = 2
	}

	return &HTTPBackend{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
		limiter:  common.NewRateLimiter(rps, burst),
		logger:   log,
		tracer:   tracer,
	}
}

// executeRequest is the JSON body POSTed to the upstream endpoint per phase.
type executeRequest struct {
	Kind         string                     `json:"kind"`
	Phase        string                     `json:"phase"`
	Conversation string                     `json:"conversation"`
	Participants []string                   `json:"participants,omitempty"`
	Seeds        map[string]json.RawMessage `json:"seeds,omitempty"`
	Prior        map[string]json.RawMessage `json:"prior,omitempty"`
}

// executeResponse is the upstream response envelope.
type executeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// Execute runs one phase against the upstream endpoint.
func (b *HTTPBackend) Execute(ctx context.Context, input appanalysis.PhaseInput) (json.RawMessage, error) {
	ctx, span := b.tracer.Start(ctx, "backend.http.execute",
		trace.WithAttributes(
			attribute.String("kind", input.Kind.String()),
			attribute.String("phase", input.Phase),
		))
	defer span.End()

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for upstream rate limiter: %w", err)
	}

	seeds := make(map[string]json.RawMessage, 2)
	if len(input.Request.ReconSeed) > 0 {
		seeds["recon"] = input.Request.ReconSeed
	}
	if len(input.Request.DeepReconSeed) > 0 {
		seeds["deep_recon"] = input.Request.DeepReconSeed
	}

	body, err := json.Marshal(executeRequest{
		Kind:         input.Kind.String(),
		Phase:        input.Phase,
		Conversation: input.Request.Conversation,
		Participants: input.Request.Participants,
		Seeds:        seeds,
		Prior:        input.PriorResults,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding phase request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building phase request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream call failed")
		return nil, fmt.Errorf("calling analysis backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading backend response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "upstream returned non-200")
		b.logger.Error(ctx, "analysis backend error",
			"status", resp.StatusCode,
			"phase", input.Phase,
		)
		return nil, fmt.Errorf("analysis backend returned status %d", resp.StatusCode)
	}

	var envelope executeResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding backend response: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("analysis backend: %s", envelope.Error)
	}

	span.SetStatus(codes.Ok, "phase executed")
	return envelope.Result, nil
}
