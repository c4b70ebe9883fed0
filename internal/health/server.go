// Package health provides a lightweight HTTP server for container health
// checks and the Prometheus scrape endpoint.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racecapture/internal/capture"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// StatusReporter exposes the progress of a snapshot scheduling run.
type StatusReporter interface {
	Status() capture.Status
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks,omitempty"`
	Scheduler *capture.Status   `json:"scheduler,omitempty"`
	Duration  string            `json:"duration,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Address     string
	Logger      *logrus.Logger
	DB          DatabasePinger
	Scheduler   StatusReporter
	// StaleAfter marks the scheduler unready when its last tick is older.
	// Zero disables the staleness check.
	StaleAfter time.Duration
	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

// Server is a lightweight HTTP server for health check endpoints.
type Server struct {
	cfg    Config
	server *http.Server
	now    func() time.Time
	mu     sync.RWMutex
	ready  bool
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Server{cfg: cfg, now: time.Now}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the endpoint mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	if s.cfg.Metrics != nil {
		mux.Handle(s.cfg.MetricsPath, s.cfg.Metrics)
	}
	return mux
}

// Start serves in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.cfg.Logger.WithFields(logrus.Fields{
			"address": s.cfg.Address,
			"service": s.cfg.ServiceName,
		}).Info("Health check server starting")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.cfg.Logger.WithError(err).Error("Health check server error")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	s.cfg.Logger.Info("Health check server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.cfg.ServiceName,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.cfg.ServiceName})
}

// handleReady requires the manual ready flag, a scheduler that has ticked
// recently, and a reachable database when one is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	checks := make(map[string]string)
	allHealthy := true

	if s.IsReady() {
		checks["service"] = "ok"
	} else {
		allHealthy = false
		checks["service"] = "not_ready"
	}

	response := ReadyResponse{Service: s.cfg.ServiceName, Checks: checks}

	if s.cfg.Scheduler != nil {
		status := s.cfg.Scheduler.Status()
		response.Scheduler = &status
		switch {
		case status.LastTick.IsZero():
			allHealthy = false
			checks["scheduler"] = "not_started"
		case s.cfg.StaleAfter > 0 && start.Sub(status.LastTick) > s.cfg.StaleAfter:
			allHealthy = false
			checks["scheduler"] = fmt.Sprintf("stale: last tick %s ago", start.Sub(status.LastTick).Truncate(time.Second))
		default:
			checks["scheduler"] = "ok"
		}
	}

	if s.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.cfg.DB.Ping(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	response.Duration = s.now().Sub(start).String()
	if allHealthy {
		response.Status = "ok"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	writeJSON(w, http.StatusServiceUnavailable, response)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
