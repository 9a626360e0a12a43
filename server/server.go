// Package server exposes the planner over http.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aouyang1/go-watercast"
	"github.com/aouyang1/go-watercast/config"
	"github.com/aouyang1/go-watercast/forecast"
	"github.com/aouyang1/go-watercast/metrics"
	"github.com/aouyang1/go-watercast/models"
	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// MaxBodyBytes limits the size of a request body
const MaxBodyBytes = 4 << 20

var (
	ErrNoHistory      = errors.New("no history in request and no default history")
	ErrBodyTooBig     = errors.New("request body too large")
	ErrInvalidRequest = errors.New("unable to decode request")
)

// HistoryTable is a tabular history with a header row naming the columns. The date column
// takes ISO-8601 dates.
type HistoryTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Request selects the horizon and optionally carries the history to forecast from. Without
// rows the server's default history is used.
type Request struct {
	Horizon int           `json:"horizon"`
	History *HistoryTable `json:"history,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// Server routes http requests to the planner
type Server struct {
	router   *mux.Router
	planner  *watercast.Planner
	history  *timedataset.History
	limiter  *rate.Limiter
	gatherer prometheus.Gatherer
	metrics  *metrics.Metrics
	start    time.Time
}

// New creates the http handler. A nil history requires every request to carry its own. A
// zero rate limit leaves requests unlimited.
func New(p *watercast.Planner, h *timedataset.History, cfg config.ServerConfig, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		router:   mux.NewRouter(),
		planner:  p,
		history:  h,
		gatherer: gatherer,
		start:    time.Now(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimit)

	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodPost)
	api.HandleFunc("/budget", s.handleBudget).Methods(http.MethodPost)
	api.HandleFunc("/backtest", s.handleBacktest).Methods(http.MethodPost)
	api.HandleFunc("/sources", s.handleSources).Methods(http.MethodPost)
	api.HandleFunc("/contract", s.handleContract).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			respondError(w, http.StatusTooManyRequests, errors.New("too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// readRequest decodes the body and resolves the history it refers to
func (s *Server) readRequest(r *http.Request) (Request, *timedataset.History, error) {
	var req Request
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return req, nil, fmt.Errorf("unable to read request body, %w", err)
	}
	if len(body) > MaxBodyBytes {
		return req, nil, ErrBodyTooBig
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return req, nil, fmt.Errorf("%w, %w", ErrInvalidRequest, err)
		}
	}

	if req.History == nil || len(req.History.Rows) == 0 {
		if s.history == nil {
			return req, nil, ErrNoHistory
		}
		return req, s.history, nil
	}
	h, err := timedataset.FromTable(req.History.Header, req.History.Rows)
	if err != nil {
		return req, nil, err
	}
	return req, h, nil
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	req, h, err := s.readRequest(r)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	res, err := s.planner.Forecast(r.Context(), h, req.Horizon)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	req, h, err := s.readRequest(r)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	report, err := s.planner.Budget(r.Context(), h, req.Horizon)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	req, h, err := s.readRequest(r)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	bt, err := s.planner.Backtest(r.Context(), h, req.Horizon)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	respondJSON(w, http.StatusOK, bt)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	_, h, err := s.readRequest(r)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	splits, err := s.planner.SourceSplits(h)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	respondJSON(w, http.StatusOK, splits)
}

func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.planner.Contract())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	})
}

// statusOf maps a failure to the http status returned to the client
func statusOf(err error) int {
	var schemaErr *timedataset.SchemaError
	var contractErr *models.FeatureContractError
	var inferenceErr *models.ModelInferenceError
	switch {
	case errors.Is(err, ErrBodyTooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, forecast.ErrHoldoutTooLong),
		errors.Is(err, ErrNoHistory),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &contractErr), errors.As(err, &inferenceErr), errors.Is(err, forecast.ErrNonFiniteSum):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("unable to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if status != http.StatusTooManyRequests {
		resp.Kind = forecast.FailureKind(err)
	}
	respondJSON(w, status, resp)
}

// ListenAndServe serves until the context is done and then shuts down gracefully
func ListenAndServe(ctx context.Context, handler http.Handler, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down server, %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// WithMetrics counts every request by route on m
func (s *Server) WithMetrics(m *metrics.Metrics) *Server {
	s.metrics = m
	s.router.Use(s.observe)
	return s
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.metrics.Requests.WithLabelValues(route).Inc()
		next.ServeHTTP(w, r)
	})
}
