// Package server is the HTTP surface of the catalog: routing, validation,
// and JSON rendering. Handlers talk to the database store and the media
// gateway; they never touch object storage directly.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navicore/navicore-music/internal/auth"
	"github.com/navicore/navicore-music/internal/config"
	"github.com/navicore/navicore-music/internal/database"
	"github.com/navicore/navicore-music/internal/media"
	"github.com/navicore/navicore-music/internal/storage"
)

// Server wires the API handlers to their dependencies.
type Server struct {
	config     *config.Config
	store      database.Store
	gateway    *media.Gateway
	objects    storage.Client
	tokens     *auth.TokenIssuer
	logger     *logrus.Logger
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg *config.Config, store database.Store, gateway *media.Gateway, objects storage.Client, tokens *auth.TokenIssuer, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		config:  cfg,
		store:   store,
		gateway: gateway,
		objects: objects,
		tokens:  tokens,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealthCheck)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/admin/upload", s.handleAdminUpload)

	s.mux.HandleFunc("/api/tracks", s.handleTracks)
	s.mux.HandleFunc("/api/tracks/", s.handleTrackSubroutes)

	s.mux.HandleFunc("/api/playlists", s.handlePlaylists)
	s.mux.HandleFunc("/api/playlists/", s.handlePlaylistSubroutes)
}

// handleTracks serves the collection endpoints: list/search and create.
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetTracks(w, r)
	case http.MethodPost:
		s.handleCreateTrack(w, r)
	default:
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleTrackSubroutes dispatches /api/tracks/{id}[/stream|/play].
func (s *Server) handleTrackSubroutes(w http.ResponseWriter, r *http.Request) {
	// Path shape: ["", "api", "tracks", "{id}", ...]
	pathParts := strings.Split(r.URL.Path, "/")

	trackID, vErr := s.validateResourceID(pathParts, 4, "track_id")
	if vErr != nil {
		s.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	if len(pathParts) >= 5 && pathParts[4] != "" {
		switch pathParts[4] {
		case "stream":
			if r.Method != http.MethodGet {
				s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
				return
			}
			s.handleStreamTrack(w, r, trackID)
		case "play":
			if r.Method != http.MethodPost {
				s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
				return
			}
			s.handleRecordPlay(w, r, trackID)
		default:
			s.respondWithError(w, r, http.StatusNotFound, "Not found", nil)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetTrack(w, r, trackID)
	case http.MethodDelete:
		s.handleDeleteTrack(w, r, trackID)
	default:
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handlePlaylists serves the playlist collection endpoints.
func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetPlaylists(w, r)
	case http.MethodPost:
		s.handleCreatePlaylist(w, r)
	default:
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handlePlaylistSubroutes dispatches /api/playlists/{id}[/tracks[/{tid}]].
func (s *Server) handlePlaylistSubroutes(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")

	playlistID, vErr := s.validateResourceID(pathParts, 4, "playlist_id")
	if vErr != nil {
		s.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	if len(pathParts) >= 5 && pathParts[4] == "tracks" {
		if len(pathParts) >= 6 && pathParts[5] != "" {
			trackID, vErr := s.validateResourceID(pathParts, 6, "track_id")
			if vErr != nil {
				s.respondWithValidationError(w, r, []ValidationError{*vErr})
				return
			}
			if r.Method != http.MethodDelete {
				s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
				return
			}
			s.handleRemoveTrackFromPlaylist(w, r, playlistID, trackID)
			return
		}

		switch r.Method {
		case http.MethodGet:
			s.handleGetPlaylistTracks(w, r, playlistID)
		case http.MethodPost:
			s.handleAddTrackToPlaylist(w, r, playlistID)
		default:
			s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetPlaylist(w, r, playlistID)
	case http.MethodDelete:
		s.handleDeletePlaylist(w, r, playlistID)
	default:
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// Handler returns the full middleware-wrapped handler chain. Exposed so
// tests can drive the server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = s.corsMiddleware(handler)
	handler = s.requestLoggingMiddleware(handler)
	handler = s.panicRecoveryMiddleware(handler)
	return handler
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.config.GetAddress(),
		Handler:     s.Handler(),
		ReadTimeout: time.Duration(s.config.Server.ReadTimeout) * time.Second,
	}

	s.logger.WithField("address", s.config.GetAddress()).Info("API server starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
