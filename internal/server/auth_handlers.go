package server

import (
	"net/http"

	"github.com/navicore/navicore-music/internal/auth"
)

// handleLogin is a development stub: credentials in the body are ignored and
// every caller receives a token for the same fixed identity. Real credential
// checks belong here when the auth story grows up.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	token, err := s.tokens.Issue(auth.StubSubject)
	if err != nil {
		s.respondWithError(w, r, http.StatusInternalServerError, "Error issuing token", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.respondJSON(w, map[string]interface{}{
		"token":      token,
		"user_id":    auth.StubSubject,
		"expires_in": int(s.tokens.TTL().Seconds()),
	})
}
