// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/ingest"
	service "github.com/ShahinHasanov90/TAGS-Matching/internal/app"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/config"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/filter"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/network"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/stats"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	Run(ctx context.Context, primary []model.EventRecord, comparisons []model.Source, maxMinutes int) (service.Snapshot, error)

	// Read operations expose the latest snapshot.
	Latest() (service.Snapshot, error)
	Query(c model.Category, q filter.Query) ([]model.Match, error)
	Summary() (stats.Summary, error)
	Network(ctx context.Context) (network.Network, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	analysesHandler *AnalysesHandler
	resultsHandler  *ResultsHandler
	reportHandler   *ReportHandler
}

type serverSettings struct {
	reader       *ingest.Reader
	maxMinutes   int
	maxBodyBytes int64
	now          func() time.Time
	logger       logger.Logger
}

// Option configures a Server.
type Option func(*serverSettings)

// WithReader sets how request records are parsed.
func WithReader(r *ingest.Reader) Option {
	return func(s *serverSettings) {
		if r != nil {
			s.reader = r
		}
	}
}

// WithDefaultMaxMinutes sets the tolerance used when a request omits it.
func WithDefaultMaxMinutes(m int) Option {
	return func(s *serverSettings) { s.maxMinutes = m }
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *serverSettings) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithClock sets the clock that anchors recency filters.
func WithClock(now func() time.Time) Option {
	return func(s *serverSettings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *serverSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	st := serverSettings{
		reader:       ingest.NewReader(),
		maxMinutes:   config.DefaultMaxMinutes,
		maxBodyBytes: 32 << 20,
		now:          time.Now,
		logger:       logger.Named("api"),
	}
	for _, opt := range opts {
		opt(&st)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		analysesHandler: NewAnalysesHandler(deps, st),
		resultsHandler:  NewResultsHandler(deps, st.now),
		reportHandler:   NewReportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.reportHandler.HandleStats, "stats"))
	mux.HandleFunc("/analyses", MetricsMiddleware(s.analysesHandler.HandlePostAnalysis, "analyses"))
	mux.HandleFunc("/results/", MetricsMiddleware(s.resultsHandler.HandleGetResults, "results"))
	mux.HandleFunc("/summary", MetricsMiddleware(s.reportHandler.HandleSummary, "summary"))
	mux.HandleFunc("/network", MetricsMiddleware(s.reportHandler.HandleNetwork, "network"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
