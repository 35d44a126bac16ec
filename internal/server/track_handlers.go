package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/navicore/navicore-music/internal/database"
	"github.com/navicore/navicore-music/pkg/models"
)

// trackListResponse is the collection payload for GET /api/tracks.
type trackListResponse struct {
	Tracks []models.Track `json:"tracks"`
	Count  int            `json:"count"`
}

// handleGetTracks returns all tracks, or a filtered set when q is present.
func (s *Server) handleGetTracks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if vErr := s.validateSearchQuery(query); vErr != nil {
		s.respondWithValidationError(w, r, []ValidationError{*vErr})
		return
	}

	var tracks []models.Track
	var err error
	if query != "" {
		tracks, err = s.store.SearchTracks(query)
	} else {
		tracks, err = s.store.GetAllTracks()
	}
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving tracks", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, trackListResponse{Tracks: tracks, Count: len(tracks)})
}

// handleCreateTrack registers a catalog entry for media that already lives
// in object storage. Uploading bytes is the admin upload endpoint's job.
func (s *Server) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	var params models.CreateTrack
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if errs := s.validateCreateTrack(params); len(errs) > 0 {
		s.respondWithValidationError(w, r, errs)
		return
	}

	track, err := s.store.CreateTrack(params)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error creating track", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	s.respondJSON(w, track)
}

// handleGetTrack returns a single track by id.
func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request, trackID string) {
	track, err := s.store.GetTrackByID(trackID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving track", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, track)
}

// handleDeleteTrack removes a track row. Playlist memberships and play
// history cascade in the store; stored media bytes are left in place.
func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request, trackID string) {
	deleted, err := s.store.DeleteTrack(trackID)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error deleting track", err)
		return
	}
	if !deleted {
		s.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, map[string]string{"message": "Track deleted"})
}
