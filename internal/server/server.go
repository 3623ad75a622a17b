// Package server provides the HTTP server of the posture monitor.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ayusman/shrimpwatch/internal/app"
	"github.com/ayusman/shrimpwatch/internal/server/api"
)

// Default limits for on-demand checks: one every 5 seconds with a burst of 3.
const (
	DefaultCheckRate  = rate.Limit(0.2)
	DefaultCheckBurst = 3
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App

	// CheckRate and CheckBurst bound POST /api/check. Zero values use the
	// defaults.
	CheckRate  rate.Limit
	CheckBurst int
}

// Server represents the HTTP server of the posture monitor.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	live   *LiveHandler
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.CheckRate == 0 {
		config.CheckRate = DefaultCheckRate
	}
	if config.CheckBurst <= 0 {
		config.CheckBurst = DefaultCheckBurst
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if a := s.config.App; a != nil {
		monitor := api.NewMonitorHandler(a, rate.NewLimiter(s.config.CheckRate, s.config.CheckBurst))
		for _, path := range []string{"/api/status", "/api/monitoring", "/api/check", "/api/snooze", "/api/recheck"} {
			s.mux.Handle(path, monitor)
		}

		history := api.NewHistoryHandler(a)
		for _, path := range []string{"/api/checks", "/api/summaries", "/api/data"} {
			s.mux.Handle(path, history)
		}

		calibration := api.NewCalibrationHandler(a)
		s.mux.Handle("/api/calibration", calibration)
		s.mux.Handle("/api/calibration/", calibration)

		s.mux.Handle("/api/settings", api.NewSettingsHandler(a))
		s.mux.Handle("/api/evaluate", api.NewEvaluateHandler(a))
		s.mux.Handle("/api/stream/", NewStreamHandler(a))

		s.live = NewLiveHandler()
		a.OnResult(s.live.Broadcast)
		s.mux.Handle("/api/live", s.live)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithField("addr", addr).Info("HTTP server listening")
	return s.http.ListenAndServe()
}

// Shutdown stops the HTTP server and disconnects live clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.live != nil {
		s.live.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
