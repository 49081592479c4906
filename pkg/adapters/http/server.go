package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/aretw0/ternlab"
	"github.com/aretw0/ternlab/internal/logging"
	"github.com/aretw0/ternlab/pkg/domain"
	"github.com/aretw0/ternlab/pkg/lab"
	"github.com/aretw0/ternlab/pkg/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lab defines the grid service operations exposed over HTTP.
type Lab interface {
	Grid(ctx context.Context) domain.GridView
	Metrics(ctx context.Context) domain.MetricsReport
	Thresholds(ctx context.Context) domain.Thresholds
	Export(ctx context.Context) *domain.Snapshot

	SetCell(ctx context.Context, x, y, value int) error
	StepN(ctx context.Context, k int) (domain.GridView, error)
	Reset(ctx context.Context) error
	Resize(ctx context.Context, n int) error
	Seed(ctx context.Context, mode string, rngSeed *int64) (domain.GridView, error)
	SetThresholds(ctx context.Context, pos, neg int) (domain.Thresholds, error)
	ImportDocument(ctx context.Context, doc *snapshot.Document) error

	Experiments() []lab.Experiment
	RunExperiment(ctx context.Context, name string, rngSeed *int64) (domain.GridView, error)

	SaveSnapshot(ctx context.Context, name string) (string, error)
	LoadSnapshot(ctx context.Context, id string) error
	GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
	ListSnapshots(ctx context.Context) ([]string, error)
}

var _ Lab = (*lab.Lab)(nil)

// maxBodyBytes bounds request bodies; a 256x256 import is well under 1 MiB.
const maxBodyBytes = 8 << 20

// Server serves the lab over HTTP.
type Server struct {
	Lab     Lab
	Streams *StreamManager

	logger         *slog.Logger
	corsOrigins    []string
	metricsHandler http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a StreamManager whose Hooks are already wired into the lab.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithCORSOrigins sets the allowed origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMetricsHandler replaces the /debug/metrics handler (defaults to promhttp.Handler()).
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// NewServer creates a server for l.
func NewServer(l Lab, opts ...Option) *Server {
	s := &Server{
		Lab:         l,
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	if s.metricsHandler == nil {
		s.metricsHandler = promhttp.Handler()
	}
	return s
}

// NewHandler creates a new HTTP handler for the lab.
func NewHandler(l Lab, opts ...Option) http.Handler {
	return NewServer(l, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	r.Method(http.MethodGet, "/debug/metrics", s.metricsHandler)

	r.Get("/metrics", s.GetMetrics)

	r.Route("/grid", func(r chi.Router) {
		r.Get("/", s.GetGrid)
		r.Post("/set", s.SetCell)
		r.Post("/step", s.StepGrid)
		r.Post("/reset", s.ResetGrid)
		r.Post("/size/{n}", s.SetGridSize)
		r.Post("/seed", s.SeedGrid)
		r.Get("/thresholds", s.GetThresholds)
		r.Post("/thresholds", s.SetThresholds)
		r.Get("/export", s.ExportPattern)
		r.Post("/import", s.ImportPattern)
		r.Get("/events", s.SubscribeEvents)
		r.Get("/entropy.png", s.GetEntropyChart)
	})

	r.Get("/experiments", s.ListExperiments)
	r.Post("/experiments/{name}", s.RunExperiment)

	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", s.ListSnapshots)
		r.Post("/", s.SaveSnapshot)
		r.Get("/{id}", s.GetSnapshot)
		r.Delete("/{id}", s.DeleteSnapshot)
		r.Post("/{id}/load", s.LoadSnapshot)
	})

	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case slices.Contains(s.corsOrigins, "*"):
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>ternlab API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	} else if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "error", err)
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "ternlab-http",
		"version":     ternlab.Version,
		"api_version": apiVersion,
	})
}

// GetOpenAPI handles the GET /openapi.yaml request.
func (s *Server) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(rawSpec)
}

// -- Helpers --

type successResponse struct {
	Success bool `json:"success"`
}

var success = successResponse{Success: true}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errBadRequest marks malformed requests that never reach the lab.
var errBadRequest = errors.New("malformed request")

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	kind := domain.ErrorKind(err)
	switch {
	case errors.Is(err, errBadRequest):
		status, kind = http.StatusBadRequest, "InvalidRequest"
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "kind", kind, "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: kind, Message: err.Error()})
}

// decode reads an optional or required JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any, required bool) error {
	if r.Body == nil || r.ContentLength == 0 {
		if required {
			return fmt.Errorf("%w: request body is required", errBadRequest)
		}
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if !required && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
