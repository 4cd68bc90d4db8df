package server

import (
	"net/http"

	"github.com/jrsteele09/erg-tracking/discord"
	apperrors "github.com/jrsteele09/erg-tracking/internal/errors"
	"github.com/jrsteele09/erg-tracking/sessions"
	"github.com/rs/zerolog"
)

// DiscordLoginHandler sends the browser to Discord's consent screen.
func (s *Server) DiscordLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.config.OAuthConfigured() {
			http.Error(w, msgOAuthNotConfigured, http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, s.discord.AuthURL(), http.StatusFound)
	}
}

// OAuthCallbackHandler exchanges the code, loads the profile and issues the
// session cookie.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		if !s.config.ExchangeConfigured() {
			http.Error(w, msgOAuthNotConfigured, http.StatusInternalServerError)
			return
		}
		if s.config.Session.Secret == "" {
			http.Error(w, msgSecretNotConfigured, http.StatusInternalServerError)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing code", http.StatusBadRequest)
			return
		}

		user, err := s.discord.Authenticate(r.Context(), code)
		if err != nil {
			var upstream *discord.UpstreamError
			if apperrors.As(err, &upstream) {
				logger.Warn().Err(err).Str("stage", upstream.Stage).Msg("Discord rejected login")
				if upstream.Stage == "token" {
					http.Error(w, "Token exchange failed: "+upstream.Body, http.StatusBadRequest)
				} else {
					http.Error(w, "User fetch failed", http.StatusBadRequest)
				}
				return
			}
			logger.Err(err).Msg("Callback failed")
			http.Error(w, "Callback error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		token, err := s.codec.Sign(user.Payload())
		if err != nil {
			logger.Err(err).Msg("Failed to sign session")
			http.Error(w, "Callback error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		sessions.SetCookie(w, token, s.config.SecureCookies())
		logger.Info().Str("user_id", user.ID).Msg("User logged in")
		http.Redirect(w, r, RouteAuthSuccess, http.StatusFound)
	}
}

// LogoutHandler drops the session cookie. The token itself stays valid if
// replayed; there is no server-side state to revoke.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.ClearCookie(w, s.config.SecureCookies())
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
