package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/erg-tracking/discord"
	"github.com/jrsteele09/erg-tracking/internal/config"
	"github.com/jrsteele09/erg-tracking/notify"
	"github.com/jrsteele09/erg-tracking/sessions"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	fileServer http.Handler
	config     *config.Config
	codec      *sessions.Codec
	discord    *discord.Client
	forwarder  *notify.Forwarder
}

// New wires the handlers from cfg. cfg is treated as read-only from here on.
func New(cfg *config.Config) *Server {
	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	s := &Server{
		env:    strings.ToUpper(cfg.Env),
		mux:    http.NewServeMux(),
		config: cfg,
		codec:  sessions.NewCodec(cfg.Session.Secret),
		discord: discord.NewClient(discord.Options{
			ClientID:     cfg.Discord.ClientID,
			ClientSecret: cfg.Discord.ClientSecret,
			RedirectURL:  cfg.Discord.CallbackURL,
			AuthURL:      cfg.Discord.AuthURL,
			TokenURL:     cfg.Discord.TokenURL,
			APIBaseURL:   cfg.Discord.APIBaseURL,
			HTTPClient:   httpClient,
		}),
		forwarder: notify.NewForwarder(cfg.Webhook.URL, notify.WithHTTPClient(httpClient)),
	}
	s.fileServer = FileServerHandler()

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
