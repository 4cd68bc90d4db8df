package server

import (
	"net/http"

	"github.com/jrsteele09/erg-tracking/sessions"
)

type userResponse struct {
	LoggedIn bool              `json:"loggedIn"`
	User     *sessions.Payload `json:"user,omitempty"`
}

// CurrentUserHandler reports who the session cookie belongs to.
func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.Session.Secret == "" {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": msgSecretNotConfigured})
			return
		}
		user, ok := s.codec.FromRequest(r)
		if !ok {
			writeJSON(w, http.StatusOK, userResponse{LoggedIn: false})
			return
		}
		writeJSON(w, http.StatusOK, userResponse{LoggedIn: true, User: user})
	}
}
