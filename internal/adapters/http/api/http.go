// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/markscard/internal/domain/report"
	"github.com/okian/markscard/pkg/logger"
)

// DefaultIdentityHeader is the header a fronting gateway uses to pass the
// verified caller when no other header is configured.
const DefaultIdentityHeader = "X-Caller-Principal"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
// Neither operation takes the caller as an argument; it travels in ctx.
type Dependencies interface {
	StoreReport(ctx context.Context, studentName string, totalMarks, numSubjects uint32) error
	GetMyReports(ctx context.Context) ([]report.Record, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	identityHeader string
	logger         logger.Logger

	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	reportsHandler *ReportsHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithIdentityHeader sets the header carrying the verified caller.
func WithIdentityHeader(header string) ServerOption {
	return func(s *Server) {
		if header != "" {
			s.identityHeader = header
		}
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{identityHeader: DefaultIdentityHeader}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.reportsHandler = NewReportsHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	caller := CallerMiddleware(s.identityHeader)

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/reports", MetricsMiddleware(RequestIDMiddleware(caller(s.reportsHandler.HandleStoreReport)), "store_report"))
	mux.HandleFunc("/reports/mine", MetricsMiddleware(RequestIDMiddleware(caller(s.reportsHandler.HandleGetMyReports)), "get_my_reports"))
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
