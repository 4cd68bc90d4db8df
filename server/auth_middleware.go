package server

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/erg-tracking/internal/errors"
	"github.com/jrsteele09/erg-tracking/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the verified *sessions.Payload
	ContextKeySession ContextKey = "session"
)

// RequireSession is middleware for API routes that need a logged-in user.
// It verifies the erg_sess cookie and answers 401 when it is absent or forged.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.config.Session.Secret == "" {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": msgSecretNotConfigured})
				return
			}

			user, ok := s.codec.FromRequest(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": apperrors.ErrUnauthenticated.Error()})
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// SessionFromContext returns the payload stored by RequireSession.
func SessionFromContext(ctx context.Context) (*sessions.Payload, bool) {
	user, ok := ctx.Value(ContextKeySession).(*sessions.Payload)
	return user, ok && user != nil
}
