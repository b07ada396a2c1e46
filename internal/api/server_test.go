package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	appanalysis "github.com/ahrav/insight-stream/internal/app/analysis"
	"github.com/ahrav/insight-stream/internal/config"
	"github.com/ahrav/insight-stream/internal/infra/backend"
	"github.com/ahrav/insight-stream/pkg/common/logger"
	"github.com/ahrav/insight-stream/pkg/insight"
)

type noopMetrics struct{}

func (noopMetrics) IncRequestsTotal(ctx context.Context, method, path string, status int) {}
func (noopMetrics) ObserveRequestDuration(ctx context.Context, method, path string, d time.Duration) {
}
func (noopMetrics) IncStreamsOpened(ctx context.Context, kind string)          {}
func (noopMetrics) IncRateLimited(ctx context.Context)                         {}
func (noopMetrics) IncAnalysisErrors(ctx context.Context, kind, reason string) {}

func newTestServer(t *testing.T, cfg *config.Config, sb *backend.Scripted) *Server {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelDebug, "TEST", nil)
	tracer := noop.NewTracerProvider().Tracer("test")
	orch := appanalysis.NewOrchestrator(sb, log, tracer)

	srv, err := NewServer(cfg, log, tracer, orch, noopMetrics{})
	require.NoError(t, err)
	return srv
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Stream.HeartbeatInterval = time.Hour // keep frames out of short tests
	return cfg
}

// readEvents drains an SSE body into decoded events, skipping comment frames.
func readEvents(t *testing.T, body io.Reader) []insight.Event {
	t.Helper()

	var events []insight.Event
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		evt, err := insight.UnmarshalEvent([]byte(strings.TrimPrefix(line, "data: ")))
		require.NoError(t, err)
		events = append(events, evt)
	}
	return events
}

func postAnalysis(srv *Server, kind, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses/"+kind, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleAnalyzeStreamsPhaseEvents(t *testing.T) {
	sb := backend.NewScripted(0)
	sb.SetResult("subtext", json.RawMessage(`{"tone":"guarded"}`))
	srv := newTestServer(t, testConfig(), sb)

	rec := postAnalysis(srv, "subtext", `{"conversation":"a: hi\nb: hey"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	events := readEvents(t, rec.Body)
	require.Len(t, events, 2)

	progress, ok := events[0].(insight.ProgressEvent)
	require.True(t, ok)
	assert.Equal(t, insight.StatusSubtext, progress.Status)

	complete, ok := events[1].(insight.CompleteEvent)
	require.True(t, ok)
	assert.Equal(t, insight.KindSubtext, complete.Kind)
	assert.JSONEq(t, `{"tone":"guarded"}`, string(complete.Result))
}

func TestHandleAnalyzeRequiredPhaseFailure(t *testing.T) {
	sb := backend.NewScripted(0)
	sb.SetError("pass_one", errors.New("model unavailable"))
	srv := newTestServer(t, testConfig(), sb)

	rec := postAnalysis(srv, "cps", `{"conversation":"a: hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	events := readEvents(t, rec.Body)
	require.NotEmpty(t, events)

	terminal := events[len(events)-1]
	errEvt, ok := terminal.(insight.ErrorEvent)
	require.True(t, ok, "stream must end with an error event")
	assert.Contains(t, errEvt.Message, "model unavailable")

	// Exactly one terminal event.
	var terminals int
	for _, evt := range events {
		if evt.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
}

func TestHandleAnalyzeOptionalPhaseFailureStillCompletes(t *testing.T) {
	sb := backend.NewScripted(0)
	sb.SetError("research", errors.New("search provider down"))
	sb.SetResult("pass_four", json.RawMessage(`{"score":71}`))
	srv := newTestServer(t, testConfig(), sb)

	rec := postAnalysis(srv, "cps", `{"conversation":"a: hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	events := readEvents(t, rec.Body)
	require.NotEmpty(t, events)

	complete, ok := events[len(events)-1].(insight.CompleteEvent)
	require.True(t, ok, "optional phase failure must not end the run")
	assert.JSONEq(t, `{"score":71}`, string(complete.Result))
}

func TestHandleAnalyzeUnknownKind(t *testing.T) {
	srv := newTestServer(t, testConfig(), backend.NewScripted(0))

	rec := postAnalysis(srv, "phrenology", `{"conversation":"a: hi"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandleAnalyzeValidation(t *testing.T) {
	srv := newTestServer(t, testConfig(), backend.NewScripted(0))

	tests := []struct {
		name string
		kind string
		body string
		want string
	}{
		{
			name: "missing conversation",
			kind: "subtext",
			body: `{}`,
			want: "conversation is required",
		},
		{
			name: "deep recon without seed",
			kind: "deep_recon",
			body: `{"conversation":"a: hi"}`,
			want: "recon_result seed",
		},
		{
			name: "malformed json",
			kind: "subtext",
			body: `{"conversation":`,
			want: "malformed JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postAnalysis(srv, tt.kind, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, "Validation error:")
			assert.Contains(t, resp.Error, tt.want)
		})
	}
}

func TestHandleAnalyzePayloadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Stream.MaxBodyBytes = 64
	srv := newTestServer(t, cfg, backend.NewScripted(0))

	big := `{"conversation":"` + strings.Repeat("x", 256) + `"}`
	rec := postAnalysis(srv, "subtext", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleAnalyzeRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Requests = 2
	cfg.RateLimit.Window = time.Minute
	sb := backend.NewScripted(0)
	srv := newTestServer(t, cfg, sb)

	for i := 0; i < 2; i++ {
		rec := postAnalysis(srv, "subtext", `{"conversation":"a: hi"}`)
		require.Equal(t, http.StatusOK, rec.Code, "request %d within budget", i+1)
	}

	rec := postAnalysis(srv, "subtext", `{"conversation":"a: hi"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different client identity has its own window.
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses/subtext", strings.NewReader(`{"conversation":"a: hi"}`))
	req.Header.Set("X-Client-ID", "other-client")
	other := httptest.NewRecorder()
	srv.Handler().ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestHandleAnalyzeRateLimitSharedAcrossPorts(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Requests = 1
	cfg.RateLimit.Window = time.Minute
	srv := newTestServer(t, cfg, backend.NewScripted(0))

	// Two connections from the same host differ only in ephemeral port and
	// must share one rate-limit budget.
	post := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/analyses/subtext", strings.NewReader(`{"conversation":"a: hi"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, post("203.0.113.7:41002").Code)
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.7:41003").Code)

	// A different host is unaffected.
	assert.Equal(t, http.StatusOK, post("203.0.113.8:41002").Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, testConfig(), backend.NewScripted(0))

	for _, path := range []string{"/v1/health", "/v1/readiness"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
