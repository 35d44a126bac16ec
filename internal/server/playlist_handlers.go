package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/navicore/navicore-music/internal/database"
	"github.com/navicore/navicore-music/pkg/models"
)

// playlistDetailResponse is the payload for GET /api/playlists/{id}: the
// playlist plus its tracks in playlist order.
type playlistDetailResponse struct {
	Playlist models.Playlist `json:"playlist"`
	Tracks   []models.Track  `json:"tracks"`
}

// handleGetPlaylists returns all playlists with track counts.
func (s *Server) handleGetPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.GetAllPlaylists()
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlists", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, playlists)
}

// handleCreatePlaylist creates a new empty playlist.
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var params models.CreatePlaylist
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if errs := s.validateCreatePlaylist(params); len(errs) > 0 {
		s.respondWithValidationError(w, r, errs)
		return
	}

	playlist, err := s.store.CreatePlaylist(params)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error creating playlist", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	s.respondJSON(w, playlist)
}

// handleGetPlaylist returns one playlist with its ordered tracks.
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request, playlistID string) {
	playlist, err := s.store.GetPlaylistByID(playlistID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.respondWithError(w, r, http.StatusNotFound, "Playlist not found", nil)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist", err)
		return
	}

	tracks, err := s.store.GetPlaylistTracks(playlistID)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist tracks", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, playlistDetailResponse{Playlist: playlist, Tracks: tracks})
}

// handleDeletePlaylist deletes a playlist; memberships cascade in the store.
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request, playlistID string) {
	deleted, err := s.store.DeletePlaylist(playlistID)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error deleting playlist", err)
		return
	}
	if !deleted {
		s.respondWithError(w, r, http.StatusNotFound, "Playlist not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, map[string]string{"message": "Playlist deleted"})
}

// handleGetPlaylistTracks returns the tracks of one playlist in order.
func (s *Server) handleGetPlaylistTracks(w http.ResponseWriter, r *http.Request, playlistID string) {
	if _, err := s.store.GetPlaylistByID(playlistID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.respondWithError(w, r, http.StatusNotFound, "Playlist not found", nil)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist", err)
		return
	}

	tracks, err := s.store.GetPlaylistTracks(playlistID)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving playlist tracks", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, tracks)
}

// handleAddTrackToPlaylist adds a track at an explicit position, or appends
// when position is omitted.
func (s *Server) handleAddTrackToPlaylist(w http.ResponseWriter, r *http.Request, playlistID string) {
	var req struct {
		TrackID  string `json:"track_id"`
		Position *int   `json:"position,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if req.TrackID == "" {
		s.respondWithValidationError(w, r, []ValidationError{{
			Field:   "track_id",
			Message: "Track ID is required",
			Code:    "MISSING_TRACK_ID",
		}})
		return
	}
	if req.Position != nil && *req.Position < 0 {
		s.respondWithValidationError(w, r, []ValidationError{{
			Field:   "position",
			Message: "Position cannot be negative",
			Code:    "INVALID_POSITION",
		}})
		return
	}

	err := s.store.AddTrackToPlaylist(playlistID, req.TrackID, req.Position)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			s.respondWithError(w, r, http.StatusNotFound, "Playlist or track not found", nil)
		case errors.Is(err, database.ErrDuplicate):
			s.respondWithError(w, r, http.StatusConflict, "Track already in playlist", nil)
		default:
			s.respondWithError(w, r, http.StatusInternalServerError, "Error adding track to playlist", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	s.respondJSON(w, map[string]string{"message": "Track added to playlist"})
}

// handleRemoveTrackFromPlaylist removes one membership row.
func (s *Server) handleRemoveTrackFromPlaylist(w http.ResponseWriter, r *http.Request, playlistID, trackID string) {
	removed, err := s.store.RemoveTrackFromPlaylist(playlistID, trackID)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error removing track from playlist", err)
		return
	}
	if !removed {
		s.respondWithError(w, r, http.StatusNotFound, "Track not in playlist", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, map[string]string{"message": "Track removed from playlist"})
}
