// Package server exposes the backend HTTP API: the local-check
// endpoint, the measurement summary endpoint, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazz-dev/netdiag/internal/metrics"
	"github.com/hazz-dev/netdiag/internal/model"
)

// LocalChecker runs the local DNS + TCP checks for a domain.
type LocalChecker interface {
	Check(ctx context.Context, domain string) ([]model.DNSRecord, model.TCPResult)
}

// MeasurementService schedules distributed measurements and summarizes
// their results.
type MeasurementService interface {
	CreateMeasurement(ctx context.Context, target string) (string, error)
	GetSummary(ctx context.Context, id string) (model.Snapshot, error)
}

// Server holds the chi router and its dependencies.
type Server struct {
	checker     LocalChecker
	measurement MeasurementService
	router      chi.Router
	logger      *slog.Logger
}

// New creates a Server and registers all routes. Pass nil logger to
// use the default logger.
func New(checker LocalChecker, measurement MeasurementService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		checker:     checker,
		measurement: measurement,
		router:      chi.NewRouter(),
		logger:      logger,
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("registering metrics", "error", err)
	}
	s.registerRoutes()
	return s
}

// Router returns the chi router (for mounting or testing).
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/diagnose", s.handleDiagnose)
	r.Get("/api/measurements/{id}", s.handleMeasurement)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// --- Response helpers ---

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type diagnoseRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}

	start := time.Now()
	dns, tcp := s.checker.Check(r.Context(), req.Domain)
	metrics.ObserveDiagnose(time.Since(start), string(tcp.Status))

	rep := model.Report{
		Domain:    req.Domain,
		DNS:       dns,
		TCP:       tcp,
		Timestamp: time.Now().UTC(),
	}

	// Scheduling the global measurement is best effort: a report
	// without a handle is still a valid diagnosis.
	id, err := s.measurement.CreateMeasurement(r.Context(), req.Domain)
	if err != nil {
		s.logger.Warn("creating measurement", "domain", req.Domain, "error", err)
	} else {
		rep.Measurement = &model.MeasurementHandle{ID: id}
	}

	writeJSON(w, http.StatusOK, rep)
}

type measurementResponse struct {
	Status string        `json:"status"`
	Probes []model.Probe `json:"probes"`
}

func (s *Server) handleMeasurement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	metrics.IncMeasurementPoll()

	snap, err := s.measurement.GetSummary(r.Context(), id)
	if err != nil {
		s.logger.Error("fetching measurement summary", "measurement_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "measurement unavailable")
		return
	}

	status := "in-progress"
	if snap.Complete {
		status = "finished"
	}
	writeJSON(w, http.StatusOK, measurementResponse{
		Status: status,
		Probes: snap.Probes,
	})
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}
