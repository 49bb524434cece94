package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// ProviderLearnWorlds is the only {provider} value accepted by the auth routes.
	ProviderLearnWorlds = "learnworlds"

	// Auth Routes
	RouteAuthStart       = "/auth/{provider}/start"
	RouteAuthLearnWorlds = "/auth/" + ProviderLearnWorlds
	RouteAuthCallback    = "/auth/{provider}/callback"
	RouteAuthFailure     = "/auth/failure"
	RouteAuthLogout      = "/auth/logout"

	// API Routes
	RouteAPI      = "/api/"
	RouteQuizData = "/api/quiz-data"
	RouteData     = "/api/data"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
