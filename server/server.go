package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/lms-quiz-gate/content"
	"github.com/jrsteele09/lms-quiz-gate/gate"
	"github.com/jrsteele09/lms-quiz-gate/handshake"
	"github.com/jrsteele09/lms-quiz-gate/internal/config"
	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/jrsteele09/lms-quiz-gate/sessions"
	"github.com/rs/zerolog/log"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	env       string // Environment (e.g., "DEV", "production")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	gate      gate.AccessGate
	handshake *handshake.Controller
	store     sessions.Store
	cookies   *sessions.CookieSigner
	content   *content.Service
	health    map[string]HealthCheck
}

func New(c config.Config, deps *Dependencies) (*Server, error) {
	if deps == nil || deps.Gate == nil || deps.Content == nil {
		return nil, fmt.Errorf("[Server New] gate and content are required: %w", apperrors.ErrConfiguration)
	}
	if c.GetGateStrategy() == config.StrategySession && (deps.Handshake == nil || deps.Store == nil || deps.Cookies == nil) {
		return nil, fmt.Errorf("[Server New] session strategy needs handshake, store and cookie signer: %w", apperrors.ErrConfiguration)
	}

	s := &Server{
		env:       c.GetEnv(),
		mux:       http.NewServeMux(),
		config:    c,
		gate:      deps.Gate,
		handshake: deps.Handshake,
		store:     deps.Store,
		cookies:   deps.Cookies,
		content:   deps.Content,
		health:    deps.HealthChecks,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
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
	log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
