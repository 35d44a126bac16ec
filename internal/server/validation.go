package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/navicore/navicore-music/pkg/models"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondJSON encodes v as the response body; encode failures are logged,
// the status line has already gone out.
func (s *Server) respondJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondWithValidationError sends a structured validation error response
func (s *Server) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	s.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	s.respondJSON(w, ValidationResult{
		Valid:  false,
		Errors: errors,
	})
}

// respondWithError sends a structured error response. The message is what
// clients see; err only goes to the log, so storage and driver detail never
// leaks into responses.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := s.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	s.respondJSON(w, map[string]interface{}{
		"error": message,
		"code":  statusCode,
	})
}

// validateResourceID validates a UUID path segment. minParts is the index
// just past the id segment, matching strings.Split of the request path.
func (s *Server) validateResourceID(pathParts []string, minParts int, field string) (string, *ValidationError) {
	if len(pathParts) < minParts {
		return "", &ValidationError{
			Field:   field,
			Message: "Identifier is required",
			Code:    "MISSING_ID",
		}
	}

	id := pathParts[minParts-1]
	if id == "" {
		return "", &ValidationError{
			Field:   field,
			Message: "Identifier cannot be empty",
			Code:    "EMPTY_ID",
		}
	}

	if _, err := uuid.Parse(id); err != nil {
		return "", &ValidationError{
			Field:   field,
			Message: "Identifier must be a valid UUID",
			Code:    "INVALID_ID_FORMAT",
		}
	}

	return id, nil
}

// validateSearchQuery validates search query parameters
func (s *Server) validateSearchQuery(query string) *ValidationError {
	if len(query) > 1000 {
		return &ValidationError{
			Field:   "q",
			Message: "Search query too long (max 1000 characters)",
			Code:    "SEARCH_QUERY_TOO_LONG",
		}
	}

	if strings.Contains(query, "\x00") {
		return &ValidationError{
			Field:   "q",
			Message: "Search query contains invalid characters",
			Code:    "INVALID_SEARCH_CHARACTERS",
		}
	}

	return nil
}

// validateCreateTrack checks required fields on a create-track request.
func (s *Server) validateCreateTrack(params models.CreateTrack) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(params.Title) == "" {
		errs = append(errs, ValidationError{
			Field:   "title",
			Message: "Title is required",
			Code:    "MISSING_TITLE",
		})
	}
	if strings.TrimSpace(params.Artist) == "" {
		errs = append(errs, ValidationError{
			Field:   "artist",
			Message: "Artist is required",
			Code:    "MISSING_ARTIST",
		})
	}
	if strings.TrimSpace(params.Album) == "" {
		errs = append(errs, ValidationError{
			Field:   "album",
			Message: "Album is required",
			Code:    "MISSING_ALBUM",
		})
	}
	if strings.TrimSpace(params.FilePath) == "" {
		errs = append(errs, ValidationError{
			Field:   "file_path",
			Message: "File path is required",
			Code:    "MISSING_FILE_PATH",
		})
	}
	if params.Duration < 0 {
		errs = append(errs, ValidationError{
			Field:   "duration",
			Message: "Duration cannot be negative",
			Code:    "INVALID_DURATION",
		})
	}

	return errs
}

// validateCreatePlaylist checks required fields on a create-playlist request.
func (s *Server) validateCreatePlaylist(params models.CreatePlaylist) []ValidationError {
	var errs []ValidationError

	name := strings.TrimSpace(params.Name)
	if name == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "Playlist name is required",
			Code:    "MISSING_PLAYLIST_NAME",
		})
	}
	if len(name) > 255 {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "Playlist name too long (max 255 characters)",
			Code:    "PLAYLIST_NAME_TOO_LONG",
		})
	}
	if strings.ContainsAny(name, "\x00\n\r") {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "Playlist name contains invalid characters",
			Code:    "INVALID_PLAYLIST_NAME_CHARACTERS",
		})
	}
	if params.Description != nil && len(*params.Description) > 1000 {
		errs = append(errs, ValidationError{
			Field:   "description",
			Message: "Playlist description too long (max 1000 characters)",
			Code:    "PLAYLIST_DESCRIPTION_TOO_LONG",
		})
	}

	return errs
}
