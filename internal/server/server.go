// Package server provides the HTTP server for valentine: the JSON API, the
// websocket state and landmark feeds, the camera preview and the static
// frontend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/ayusman/valentine/internal/app"
	"github.com/ayusman/valentine/internal/server/api"
)

// Server timeouts.
const (
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	// App is the running toy. Without it only health and static files are served.
	App *app.App
}

// Server represents the HTTP server for the valentine application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	stats  *processStats
	events *EventsHandler
	hands  *LandmarksHandler
	stream *StreamHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		stats:  newProcessStats(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/qr", api.NewShareHandler())

	if a := s.config.App; a != nil {
		// JSON routes are compressed; the websocket and MJPEG stream are not.
		state := api.NewStateHandler(a)
		s.mux.Handle("/api/state", gzhttp.GzipHandler(http.HandlerFunc(state.State)))
		s.mux.Handle("/api/gesture", gzhttp.GzipHandler(http.HandlerFunc(state.Gesture)))
		s.mux.Handle("/api/session/reset", gzhttp.GzipHandler(http.HandlerFunc(state.Reset)))

		s.events = NewEventsHandler(a.Controller())
		s.mux.Handle("/api/events", s.events)

		s.hands = NewLandmarksHandler()
		a.WatchHands(s.hands.Publish)
		s.mux.Handle("/api/landmarks", s.hands)

		if a.Store() != nil {
			sessions := gzhttp.GzipHandler(api.NewSessionsHandler(a.Store(), a.SessionID))
			s.mux.Handle("/api/sessions", sessions)
			s.mux.Handle("/api/sessions/", sessions)
		}

		if a.Camera() != nil {
			s.stream = NewStreamHandler(a.Camera())
			a.WatchFrames(s.stream.Publish)
			s.mux.Handle("/api/stream", s.stream)
		}
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
	if s.events != nil {
		response["clients"] = s.events.Clients() + s.hands.Clients()
	}
	if s.stream != nil {
		response["viewers"] = s.stream.Viewers()
	}
	s.stats.fill(response)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	log.Printf("listening on %s", addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
