package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const healthTimeout = 2 * time.Second

func writeContent(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	// Gated data must not be cached by shared caches.
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// QuizDataHandler returns the question array.
func (s *Server) QuizDataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeContent(w, s.content.Questions())
	}
}

// DataHandler returns questions and flashcards.
func (s *Server) DataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeContent(w, s.content.Dataset())
	}
}

// PreflightHandler is reached only for OPTIONS requests without an Origin.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", s.config.GetAllowedMethods())
		w.WriteHeader(http.StatusNoContent)
	}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Strategy string            `json:"strategy"`
	Checks   map[string]string `json:"checks,omitempty"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Strategy: s.gate.Strategy()}
		status := http.StatusOK
		for name, check := range s.health {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(s.health))
			}
			if err := check(ctx); err != nil {
				log.Ctx(r.Context()).Err(err).Str("check", name).Msg("health check failed")
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		writeJSON(w, status, resp)
	}
}
