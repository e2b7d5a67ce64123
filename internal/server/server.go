// Package server provides the HTTP viewer for the lipstick pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/lipstick/internal/app"
	"github.com/ayusman/lipstick/internal/capture"
	"github.com/ayusman/lipstick/internal/server/api"
	"github.com/ayusman/lipstick/internal/surface"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	// Frames is the surface the app presents into and the stream reads from.
	Frames *surface.Buffer
	// Source opens a fresh video source for POST /api/processing/start.
	Source func() capture.Camera
	// JPEGQuality is used for the MJPEG stream. Zero means the default.
	JPEGQuality int
}

// Server represents the HTTP server for the viewer.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
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
		shades := api.NewShadeHandler(a)
		s.mux.Handle("/api/shades", shades)
		s.mux.Handle("/api/shades/", shades)
		s.mux.Handle("/api/compare", api.NewCompareHandler(a))
		s.mux.Handle("/api/snapshot", api.NewSnapshotHandler(a))

		var out surface.Surface
		if s.config.Frames != nil {
			out = s.config.Frames
		}
		processing := api.NewProcessingHandler(a, s.config.Source, out)
		s.mux.Handle("/api/processing", processing)
		s.mux.Handle("/api/processing/", processing)

		s.mux.Handle("/api/state", NewStateHandler(a))
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames, s.config.JPEGQuality))
	}

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

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["processing"] = s.config.App.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
