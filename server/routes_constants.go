package server

// Route path constants
const (
	// Auth
	RouteAuthDiscord  = "/api/auth/discord"
	RouteAuthCallback = "/api/auth/callback"
	RouteAuthLogout   = "/api/auth/logout"

	// Session
	RouteUser = "/api/user"

	// Submissions, {kind} is one of the submissionKinds keys
	RouteSubmit = "/api/submit/{kind}"

	RouteAPIPrefix = "/api/"

	// Browser lands here after a successful login
	RouteAuthSuccess = "/?auth=success"
)
