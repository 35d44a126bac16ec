package server

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/navicore/navicore-music/internal/ingest"
	"github.com/navicore/navicore-music/pkg/models"
)

// maxUploadBytes bounds multipart parsing memory for admin uploads.
const maxUploadBytes = 256 << 20

// handleAdminUpload ingests one audio file: the bytes go to object storage
// and a track row is created pointing at the stored key. Metadata comes from
// the form fields; title, artist and album are required.
func (s *Server) handleAdminUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Failed to parse upload form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "No file provided", err)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !s.isValidAudioFile(filename) {
		s.respondWithError(w, r, http.StatusBadRequest, "Invalid file type. Supported formats: "+strings.Join(s.config.Ingest.SupportedFormats, ", "), nil)
		return
	}

	params := models.CreateTrack{
		Title:  strings.TrimSpace(r.FormValue("title")),
		Artist: strings.TrimSpace(r.FormValue("artist")),
		Album:  strings.TrimSpace(r.FormValue("album")),
	}
	if v := r.FormValue("duration"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Duration = n
		}
	}
	if v := r.FormValue("genre"); v != "" {
		params.Genre = &v
	}
	if v := r.FormValue("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Year = &n
		}
	}
	if v := r.FormValue("track_number"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.TrackNumber = &n
		}
	}

	params.FilePath = ingest.ObjectKey(params.Artist, params.Album, params.Title, filepath.Ext(filename))

	if errs := s.validateCreateTrack(params); len(errs) > 0 {
		s.respondWithValidationError(w, r, errs)
		return
	}

	body, err := io.ReadAll(file)
	if err != nil {
		s.respondWithError(w, r, http.StatusBadRequest, "Failed to read uploaded file", err)
		return
	}

	if err := s.gateway.Upload(r.Context(), params.FilePath, ingest.ContentType(filename), body); err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Failed to store uploaded file", err)
		return
	}

	track, err := s.store.CreateTrack(params)
	if err != nil {
		// Keep storage consistent with the catalog: drop the orphaned object.
		if rmErr := s.gateway.Remove(r.Context(), params.FilePath); rmErr != nil {
			s.logger.WithError(rmErr).WithField("key", params.FilePath).Warn("Failed to remove orphaned upload")
		}
		s.respondWithError(w, r, http.StatusInternalServerError, "Error creating track", err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"filename": filename,
		"track_id": track.ID,
		"artist":   track.Artist,
		"title":    track.Title,
	}).Info("File uploaded and added to catalog")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	s.respondJSON(w, track)
}

// isValidAudioFile checks if the filename has a supported audio extension
func (s *Server) isValidAudioFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supportedExt := range s.config.Ingest.SupportedFormats {
		if ext == supportedExt {
			return true
		}
	}
	return false
}
