package server

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("GET "+RouteAuthDiscord, ChainMiddleware(s.DiscordLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// SESSION
	s.RegisterRouteHandler("GET "+RouteUser, ChainMiddleware(s.CurrentUserHandler(), s.APIMiddleware()...))

	// SUBMISSIONS
	s.RegisterRouteHandler("POST "+RouteSubmit, ChainMiddleware(s.SubmissionHandler(), s.APIMiddleware(s.RequireSession())...))

	// Front-end
	s.RegisterRouteHandler("GET /", ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare()...))
}
