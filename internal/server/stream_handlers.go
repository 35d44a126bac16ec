package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/navicore/navicore-music/internal/database"
)

// handleStreamTrack mints a fresh presigned URL for the track's media. The
// URL is returned to the client rather than proxied; playback traffic goes
// straight to object storage.
func (s *Server) handleStreamTrack(w http.ResponseWriter, r *http.Request, trackID string) {
	streamURL, err := s.gateway.StreamURL(r.Context(), trackID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error generating stream URL", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, streamURL)
}

// handleRecordPlay appends one playback event. The body is optional; an
// empty body records an anonymous play with no duration.
func (s *Server) handleRecordPlay(w http.ResponseWriter, r *http.Request, trackID string) {
	var req struct {
		UserID       *string `json:"user_id,omitempty"`
		PlayDuration *int    `json:"play_duration,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if req.PlayDuration != nil && *req.PlayDuration < 0 {
		s.respondWithValidationError(w, r, []ValidationError{{
			Field:   "play_duration",
			Message: "Play duration cannot be negative",
			Code:    "INVALID_PLAY_DURATION",
		}})
		return
	}

	if err := s.gateway.RecordPlay(r.Context(), trackID, req.UserID, req.PlayDuration); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// A foreign key violation doesn't say which reference failed.
			// If the track is present, the attributed user must be the
			// missing one.
			message := "Track not found"
			if req.UserID != nil {
				if _, trackErr := s.store.GetTrackByID(trackID); trackErr == nil {
					message = "User not found"
				}
			}
			s.respondWithError(w, r, http.StatusNotFound, message, nil)
			return
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error recording play", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	s.respondJSON(w, map[string]string{"message": "Play recorded"})
}
