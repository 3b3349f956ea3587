// Package http provides the HTTP surface of the pipeline runtime.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/pipekit/adapters/metrics"
	"github.com/artpar/pipekit/core/definition"
	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/core/runtime"
	"github.com/artpar/pipekit/core/value"
	"github.com/artpar/pipekit/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Runtime is the part of the pipeline runtime the HTTP surface serves.
type Runtime interface {
	Evaluate(ctx context.Context, name string, input value.Value) (runtime.Result, error)
	Handle(ctx context.Context, path []string, input value.Value) (runtime.Result, error)
	Transform(ctx context.Context, model string, record value.Value) (value.Value, error)
	Output(ctx context.Context, model string, record value.Value) (value.Value, error)
	Pipelines() []definition.Named
	Pipeline(name string) (definition.Named, bool)
	Symbols() []namespace.Symbol
	Snapshot() *runtime.Snapshot
	History() ports.HistoryStore
}

var _ Runtime = (*runtime.Runtime)(nil)

// ErrorResponseBody is the body of every error response.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Kind         string `json:"kind,omitempty"`
	EvaluationID string `json:"evaluation_id,omitempty"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler // Defaults to promhttp.Handler() when Metrics is set
	MetricsPath    string       // Defaults to /metrics
	MaxBodyBytes   int64        // Request body limit for evaluation endpoints
	RequestTimeout time.Duration
	Version        string
}

// NewRouter creates the main HTTP router.
func NewRouter(rt Runtime, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	api := &API{runtime: rt, logger: logger, maxBody: cfg.MaxBodyBytes}

	r.Get("/health", Liveness)
	r.Get("/health/live", Liveness)
	r.Get("/health/ready", api.Readiness)
	r.Get("/version", Version(cfg.Version))

	if cfg.MetricsHandler != nil {
		r.Handle(cfg.MetricsPath, cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/symbols", api.ListSymbols)
		r.Get("/pipelines", api.ListPipelines)
		r.Get("/pipelines/{name}", api.GetPipeline)
		r.Post("/pipelines/{name}/evaluate", api.EvaluatePipeline)
		r.Post("/models/{model}/transform", api.TransformRecord)
		r.Post("/models/{model}/output", api.OutputRecord)
		r.Get("/evaluations", api.ListEvaluations)
		r.Get("/evaluations/summary", api.SummarizeEvaluations)
		r.Get("/evaluations/{id}", api.GetEvaluation)
		r.Post("/handlers/*", api.InvokeHandler)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrorDetail{Code: "not_found", Message: "no route for " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorDetail{Code: "method_not_allowed", Message: r.Method + " is not allowed for " + r.URL.Path})
	})

	return r
}

// Liveness returns a simple liveness check.
func Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version returns a handler reporting the service version.
func Version(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version, Service: "pipekit"})
	}
}

func skipObservation(path, metricsPath string) bool {
	return strings.HasPrefix(path, "/health") || path == metricsPath
}

// NewMetricsMiddleware creates middleware that records request metrics
// labelled with the matched route pattern.
func NewMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipObservation(r.URL.Path, metricsPath) {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}

// NewLoggingMiddleware creates middleware that logs HTTP requests.
func NewLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(reqLogger.WithContext(r.Context())))

			if skipObservation(r.URL.Path, metricsPath) {
				return
			}

			reqLogger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail ErrorDetail) {
	writeJSON(w, status, ErrorResponseBody{Error: detail})
}
