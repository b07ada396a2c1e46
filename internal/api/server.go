// Package api exposes the analysis pipeline over HTTP: a streaming analyze
// endpoint plus health routes, with rate limiting and request budgets
// enforced before any stream opens.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	appanalysis "github.com/ahrav/insight-stream/internal/app/analysis"
	"github.com/ahrav/insight-stream/internal/config"
	"github.com/ahrav/insight-stream/pkg/common/logger"
	"github.com/ahrav/insight-stream/pkg/common/otel"
)

// Server is the HTTP front end of the analysis pipeline.
type Server struct {
	cfg          *config.Config
	logger       *logger.Logger
	router       *chi.Mux
	orchestrator *appanalysis.Orchestrator
	limiter      *FixedWindowLimiter
	metrics      APIMetrics
	tracer       trace.Tracer
}

// NewServer wires the router, middleware, and routes.
func NewServer(
	cfg *config.Config,
	log *logger.Logger,
	tracer trace.Tracer,
	orchestrator *appanalysis.Orchestrator,
	metrics APIMetrics,
) (*Server, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otel.Middleware(tracer))
	r.Use(loggerMiddleware(log))
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:          cfg,
		logger:       log,
		router:       r,
		orchestrator: orchestrator,
		limiter:      NewFixedWindowLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		metrics:      metrics,
		tracer:       tracer,
	}

	s.routes()
	return s, nil
}

func loggerMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				ctx := r.Context()
				log.Info(ctx, "Request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration", time.Since(start),
					"trace_id", otel.GetTraceID(ctx),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func (s *Server) routes() {
	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/readiness", s.handleReadiness)

		r.Post("/analyses/{kind}", s.handleAnalyze)
	})
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%s", s.cfg.API.Host, s.cfg.API.Port),
		Handler:     s.router,
		ReadTimeout: s.cfg.API.ReadTimeout,
		IdleTimeout: s.cfg.API.IdleTimeout,
		// WriteTimeout stays zero: it would sever long-lived streams. The
		// per-request budget in the analyze handler bounds stream duration.
		ErrorLog: logger.NewStdLogger(s.logger, logger.LevelError),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.API.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "failed to shutdown server", "error", err)
		}
	}()

	s.logger.Info(ctx, "starting server", "addr", server.Addr, "service", "insight-api")

	return server.ListenAndServe()
}
