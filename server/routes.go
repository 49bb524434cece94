package server

import (
	"github.com/jrsteele09/lms-quiz-gate/internal/config"
	"github.com/jrsteele09/lms-quiz-gate/internal/metrics"
)

func (s *Server) initRoutes() {
	// LOGIN (session strategy only)
	if s.config.GetGateStrategy() == config.StrategySession {
		s.RegisterRouteHandler("GET "+RouteAuthStart, ChainMiddleware(s.AuthStartHandler(), s.BrowserMiddleware()...))
		s.RegisterRouteHandler("GET "+RouteAuthLearnWorlds, ChainMiddleware(s.AuthStartHandler(), s.BrowserMiddleware()...))
		s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.AuthCallbackHandler(), s.BrowserMiddleware()...))
		s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.BrowserMiddleware()...))
	}
	s.RegisterRouteHandler("GET "+RouteAuthFailure, ChainMiddleware(s.AuthFailureHandler(), s.BrowserMiddleware()...))

	// Protected API routes
	s.RegisterRouteHandler("GET "+RouteQuizData, ChainMiddleware(s.QuizDataHandler(), s.APIMiddleware(s.RequireAccess())...))
	s.RegisterRouteHandler("GET "+RouteData, ChainMiddleware(s.DataHandler(), s.APIMiddleware(s.RequireAccess())...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPI, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Operational routes
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())
}
