package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/insight-stream/internal/infra/stream"
	"github.com/ahrav/insight-stream/pkg/insight"
)

// handleAnalyze runs a single analysis request as an SSE stream.
//
// All rejections (unknown kind, rate limit, oversized body, validation)
// happen before the stream opens, as ordinary JSON responses. Once the
// stream is open the response status is committed and failures surface as
// error events on the stream instead.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "api.analyze",
		trace.WithAttributes(attribute.String("kind", chi.URLParam(r, "kind"))))
	defer span.End()

	start := time.Now()
	status := http.StatusOK
	defer func() {
		s.metrics.IncRequestsTotal(ctx, r.Method, "/v1/analyses/{kind}", status)
		s.metrics.ObserveRequestDuration(ctx, r.Method, "/v1/analyses/{kind}", time.Since(start))
	}()

	kind, err := insight.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		status = http.StatusBadRequest
		writeJSONError(w, status, err.Error())
		return
	}

	if allowed, retryAfter := s.limiter.Check(clientIdentity(r)); !allowed {
		s.metrics.IncRateLimited(ctx)
		span.AddEvent("rate_limited")

		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		writeJSONError(w, status, (&insight.RateLimitError{RetryAfter: retryAfter}).Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Stream.MaxBodyBytes)

	var req insight.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
			writeJSONError(w, status, insight.ErrPayloadTooLarge.Error())
			return
		}

		status = http.StatusBadRequest
		writeJSONError(w, status, (&insight.ValidationError{Details: "malformed JSON body"}).Error())
		return
	}

	if err := req.Validate(kind); err != nil {
		status = http.StatusBadRequest
		writeJSONError(w, status, err.Error())
		return
	}

	// The budget bounds the whole run; heartbeats never extend it.
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Stream.RequestBudget)
	defer cancel()

	sw, err := stream.NewWriter(w, s.cfg.Stream.HeartbeatInterval)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream setup failed")

		status = http.StatusInternalServerError
		writeJSONError(w, status, "streaming unsupported")
		return
	}
	defer sw.Close()

	s.metrics.IncStreamsOpened(ctx, kind.String())

	if err := s.orchestrator.Run(runCtx, kind, &req, sw); err != nil {
		// Terminal error events were already written to the stream; the
		// response status is committed at this point.
		s.metrics.IncAnalysisErrors(ctx, kind.String(), reasonFor(runCtx, err))
		s.logger.Error(ctx, "analysis run failed",
			"kind", kind,
			"error", err,
			"requested_by", req.RequestedBy,
		)
	}
}

func reasonFor(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "budget_exceeded"
	default:
		return "phase_failure"
	}
}

// clientIdentity keys the rate limiter. RealIP middleware has already
// resolved forwarding headers into RemoteAddr. The ephemeral port is
// stripped so every connection from a host shares one budget.
func clientIdentity(r *http.Request) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%s}`, mustJSONString(message))
}

func mustJSONString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `"internal error"`
	}
	return string(b)
}
