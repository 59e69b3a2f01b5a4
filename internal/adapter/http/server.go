package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxUploadBytes = 10 << 20

// Predictor runs submissions. *pipeline.Pipeline implements it.
type Predictor interface {
	sharedobs.ReadinessChecker
	PredictBatch(ctx context.Context, table domain.Table) (domain.PredictionBatch, error)
	PredictOne(ctx context.Context, obs domain.Observation) (domain.PredictionBatch, error)
}

// HistoryReader returns the most recent stored predictions, newest first.
type HistoryReader interface {
	RecentPredictions(ctx context.Context, limit int) ([]domain.RecordedPrediction, error)
}

// Option configures optional server features.
type Option func(*Server)

// WithHistory enables GET /v1/predictions backed by h.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) { s.history = h }
}

// WithMaxUploadBytes caps request bodies. Larger uploads get 413.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// Server exposes the prediction API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer     *http.Server
	predictor      Predictor
	history        HistoryReader
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1/predictions routes.
func NewServer(addr string, predictor Predictor, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		predictor:      predictor,
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(predictor))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/predictions/batch", s.handleBatch)
	mux.HandleFunc("POST /v1/predictions", s.handleSingle)
	if s.history != nil {
		mux.HandleFunc("GET /v1/predictions", s.handleHistory)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
