package api

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const namespace = "insight_api"

// APIMetrics defines the metrics operations needed by the API layer.
type APIMetrics interface {
	IncRequestsTotal(ctx context.Context, method, path string, status int)
	ObserveRequestDuration(ctx context.Context, method, path string, duration time.Duration)
	IncStreamsOpened(ctx context.Context, kind string)
	IncRateLimited(ctx context.Context)
	IncAnalysisErrors(ctx context.Context, kind, reason string)
}

type apiMetrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	streamsOpened   metric.Int64Counter
	rateLimited     metric.Int64Counter
	analysisErrors  metric.Int64Counter
}

// NewAPIMetrics creates the API metric instruments on the given provider.
func NewAPIMetrics(mp metric.MeterProvider) (*apiMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(apiMetrics)
	var err error

	if m.requestsTotal, err = meter.Int64Counter(
		"requests_total",
		metric.WithDescription("Total number of API requests"),
	); err != nil {
		return nil, err
	}

	if m.requestDuration, err = meter.Float64Histogram(
		"request_duration_seconds",
		metric.WithDescription("API request duration in seconds"),
	); err != nil {
		return nil, err
	}

	if m.streamsOpened, err = meter.Int64Counter(
		"streams_opened_total",
		metric.WithDescription("Total number of analysis streams opened"),
	); err != nil {
		return nil, err
	}

	if m.rateLimited, err = meter.Int64Counter(
		"rate_limited_total",
		metric.WithDescription("Total number of rate-limited requests"),
	); err != nil {
		return nil, err
	}

	if m.analysisErrors, err = meter.Int64Counter(
		"analysis_errors_total",
		metric.WithDescription("Total number of failed analysis runs"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *apiMetrics) IncRequestsTotal(ctx context.Context, method, path string, status int) {
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	))
}

func (m *apiMetrics) ObserveRequestDuration(ctx context.Context, method, path string, duration time.Duration) {
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	))
}

func (m *apiMetrics) IncStreamsOpened(ctx context.Context, kind string) {
	m.streamsOpened.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *apiMetrics) IncRateLimited(ctx context.Context) {
	m.rateLimited.Add(ctx, 1)
}

func (m *apiMetrics) IncAnalysisErrors(ctx context.Context, kind, reason string) {
	m.analysisErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason),
	))
}
