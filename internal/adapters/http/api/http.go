// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/winprob/internal/adapters/repository"
	"github.com/okian/winprob/internal/domain/match"
	"github.com/okian/winprob/internal/domain/prediction"
	"github.com/okian/winprob/internal/domain/types"
	"github.com/okian/winprob/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Predict evaluates one match state. It never fails; faults are
	// reported inside the Outcome.
	Predict(ctx context.Context, st match.State) prediction.Outcome

	// Health reports classifier readiness.
	Health(ctx context.Context) types.Health

	// Recent returns the newest journaled predictions.
	Recent(ctx context.Context, n int) ([]repository.Record, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	predictHandler     *PredictHandler
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	predictionsHandler *PredictionsHandler

	cors    *CORS
	limiter *RateLimiter
	log     logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxJournalLimit caps GET /predictions?limit.
func WithMaxJournalLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.predictionsHandler.maxLimit = n
		}
	}
}

// WithAllowedOrigins sets the CORS origin list. "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.cors = NewCORS(origins...)
	}
}

// WithRateLimit limits POST /predict to rps requests per second. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = NewRateLimiter(rps, burst)
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		predictHandler:     NewPredictHandler(deps),
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(statsProvider),
		predictionsHandler: NewPredictionsHandler(deps, defaultMaxJournalLimit),
		cors:               NewCORS("*"),
		log:                logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.predictHandler.log = s.log
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	predict := s.predictHandler.HandlePredict
	if s.limiter != nil {
		predict = s.limiter.Middleware(predict)
	}

	s.handle(mux, "/predict", "predict", predict)
	s.handle(mux, "/health", "health", s.healthHandler.HandleHealth)
	s.handle(mux, "/stats", "stats", s.statsHandler.HandleStats)
	s.handle(mux, "/predictions", "predictions", s.predictionsHandler.HandleGetPredictions)
	mux.Handle("/metrics", MetricsHandler())
}

func (s *Server) handle(mux *http.ServeMux, path, endpoint string, h http.HandlerFunc) {
	mux.Handle(path, s.cors.Middleware(RequestID(MetricsMiddleware(h, endpoint))))
}

type errorMessage struct {
	Error string `json:"error"`
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

// writeMessage writes the {"error": msg} shape used by /predict.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorMessage{Error: msg})
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
