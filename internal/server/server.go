// Package server provides the local HTTP control and preview server for byechat.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ayusman/byechat/internal/app"
	"github.com/ayusman/byechat/internal/config"
	"github.com/ayusman/byechat/internal/server/api"
	"github.com/ayusman/byechat/internal/store"
	"github.com/rs/zerolog/log"
)

// DefaultPreviewFPS is the MJPEG preview cadence.
const DefaultPreviewFPS = 30

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	PreviewFPS int
	App        *app.App
	Store      *store.Store

	// Settings is the effective configuration exposed by /api/settings.
	Settings *config.Config
	// OnSettings is called with validated settings before they are persisted.
	OnSettings func(cfg config.Config) error
}

// Server represents the HTTP server for the byechat application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.PreviewFPS <= 0 {
		config.PreviewFPS = DefaultPreviewFPS
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
		session := api.NewSessionHandler(a)
		s.mux.Handle("/api/session", session)
		s.mux.Handle("/api/session/", session)

		s.mux.Handle("/api/stream", NewStreamHandler(a.Latest(), s.config.PreviewFPS))
		s.mux.Handle("/api/snapshot", NewSnapshotHandler(a.Latest()))
		s.mux.Handle("/api/status", NewStatusHandler(a))
	}

	if s.config.Settings != nil {
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store, s.config.Settings, s.config.OnSettings))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface. Requests that change
// state are only accepted from pages served by this server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !safeMethod(r.Method) && !sameOrigin(r) {
		log.Warn().Str("origin", r.Header.Get("Origin")).Str("path", r.URL.Path).Msg("rejected cross-origin request")
		http.Error(w, "Cross-origin request rejected", http.StatusForbidden)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// sameOrigin reports whether r comes from a page on this host. Clients that
// send no Origin (curl, the tray) are accepted unless the browser marks the
// request as cross-site.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return r.Header.Get("Sec-Fetch-Site") != "cross-site"
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["running"] = s.config.App.Running()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address and blocks
// until it fails or Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("control server listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
