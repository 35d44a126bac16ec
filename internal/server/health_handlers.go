package server

import (
	"net/http"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Storage   string                 `json:"storage"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Database:  "ok",
		Storage:   "ok",
		Details:   make(map[string]interface{}),
	}

	if err := s.store.Ping(); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	}

	// Object storage is optional; report configuration state rather than
	// failing the probe when it is absent.
	if !s.objects.Enabled() {
		health.Storage = "disabled"
	}

	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	s.respondJSON(w, health)
}
