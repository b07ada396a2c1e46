package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/insight-stream/internal/api"
	"github.com/ahrav/insight-stream/internal/api/debug"
	appanalysis "github.com/ahrav/insight-stream/internal/app/analysis"
	"github.com/ahrav/insight-stream/internal/config/fileloader"
	"github.com/ahrav/insight-stream/internal/infra/backend"
	"github.com/ahrav/insight-stream/pkg/common/logger"
	"github.com/ahrav/insight-stream/pkg/common/otel"
)

var build = "develop"

const serviceType = "insight-api"

func main() {
	// Set the correct number of threads for the service
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		stdlog.Fatalf("failed to get hostname: %v", err)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}

			// Add any error-specific attributes.
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}

			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n",
				r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("INSIGHT-API-%s", hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	log := logger.NewWithMetadata(os.Stdout, logger.LevelDebug, svcName, traceIDFn, logEvents, metadata)

	ctx := context.Background()

	if err := run(ctx, log, hostname); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, hostname string) error {
	// -------------------------------------------------------------------------
	// GOMAXPROCS
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0), "build", build)

	// -------------------------------------------------------------------------
	// Configuration
	cfg, err := fileloader.NewLoader(os.Getenv("INSIGHT_CONFIG_PATH")).Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// -------------------------------------------------------------------------
	// Start Tracing Support
	var tracer trace.Tracer
	cleanup := func(context.Context) {}

	if cfg.Telemetry.Endpoint != "" {
		log.Info(ctx, "startup", "status", "initializing tracing support")

		traceProvider, teardown, err := otel.InitTelemetry(log, otel.Config{
			ServiceName:      cfg.Telemetry.ServiceName,
			ExporterEndpoint: cfg.Telemetry.Endpoint,
			ExcludedRoutes: map[string]struct{}{
				"/v1/readiness": {},
				"/v1/health":    {},
				"/debug":        {},
			},
			Probability: cfg.Telemetry.Probability,
			ResourceAttributes: map[string]string{
				"library.language": "go",
				"host.name":        hostname,
			},
			InsecureExporter: true,
		})
		if err != nil {
			return fmt.Errorf("starting tracing: %w", err)
		}
		cleanup = teardown
		tracer = traceProvider.Tracer(cfg.Telemetry.ServiceName)
	} else {
		tracer = noop.NewTracerProvider().Tracer(cfg.Telemetry.ServiceName)
	}
	defer cleanup(ctx)

	// -------------------------------------------------------------------------
	// Start Debug Service

	go func() {
		log.Info(ctx, "startup", "status", "debug router started", "host", cfg.API.DebugHost)

		if err := http.ListenAndServe(cfg.API.DebugHost, debug.Mux()); err != nil {
			log.Error(ctx, "shutdown", "status", "debug router closed", "host", cfg.API.DebugHost, "msg", err)
		}
	}()

	// -------------------------------------------------------------------------
	// Start API Service

	log.Info(ctx, "startup", "status", "initializing API support")

	var mp metric.MeterProvider
	if cfg.Telemetry.Endpoint != "" {
		// InitTelemetry registered an exporting provider globally.
		mp = otelapi.GetMeterProvider()
	} else {
		mp, err = otel.NewMeterProvider(cfg.Telemetry.ServiceName)
		if err != nil {
			return fmt.Errorf("creating meter provider: %w", err)
		}
	}

	metricCollector, err := api.NewAPIMetrics(mp)
	if err != nil {
		return fmt.Errorf("creating metrics collector: %w", err)
	}

	var analysisBackend appanalysis.Backend
	switch cfg.Backend.Mode {
	case "http":
		analysisBackend = backend.NewHTTPBackend(backend.HTTPConfig{
			Endpoint: cfg.Backend.Endpoint,
			APIKey:   cfg.Backend.APIKey,
			Timeout:  cfg.Backend.Timeout,
			RPS:      cfg.Backend.RPS,
			Burst:    cfg.Backend.Burst,
		}, log, tracer)
	case "scripted":
		analysisBackend = backend.NewScripted(250 * time.Millisecond)
	default:
		return fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
	}

	orchestrator := appanalysis.NewOrchestrator(analysisBackend, log, tracer)

	srv, err := api.NewServer(cfg, log, tracer, orchestrator, metricCollector)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// -------------------------------------------------------------------------
	// Shutdown

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(runCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info(ctx, "shutdown", "status", "shutdown complete")

	return nil
}
