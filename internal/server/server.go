// Package server provides the kiosk's HTTP server: live state, camera
// stream, reports, operator controls and metrics.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ayusman/howlong/internal/server/api"
	"github.com/ayusman/howlong/internal/store"
)

// Config holds the server configuration. Nil dependencies disable their routes.
type Config struct {
	StaticDir string
	SharePage string
	Store     *store.Store
	Frames    FrameSource
	States    *StateHub
	Control   api.Controller
	Metrics   http.Handler
}

// Server represents the HTTP server for the kiosk.
type Server struct {
	config Config
	router chi.Router
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)

	if s.config.Store != nil {
		r.Mount("/api/reports", api.NewReportsHandler(s.config.Store, s.config.SharePage).Routes())
	}

	if s.config.Control != nil {
		r.Mount("/api/session", api.NewControlHandler(s.config.Control).Routes())
	}

	if s.config.Frames != nil {
		r.Method(http.MethodGet, "/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.States != nil {
		r.Method(http.MethodGet, "/api/state", s.config.States)
	}

	if s.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.config.Metrics)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.States != nil {
		response["clients"] = s.config.States.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// HTTPServer returns an http.Server for addr that can be shut down gracefully.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
