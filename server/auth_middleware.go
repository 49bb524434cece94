package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/lms-quiz-gate/gate"
	"github.com/jrsteele09/lms-quiz-gate/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyPrincipal stores the authorized principal
	ContextKeyPrincipal ContextKey = "principal"
)

// PrincipalFromContext returns the principal RequireAccess admitted.
func PrincipalFromContext(ctx context.Context) (sessions.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(sessions.Principal)
	return p, ok
}

// RequireAccess lets a request through only on an Authorized verdict from the
// configured gate.
func (s *Server) RequireAccess() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			logger := log.Ctx(r.Context())

			verdict, err := s.gate.Authorize(r.Context(), r)
			if err != nil {
				logger.Err(err).Str("strategy", s.gate.Strategy()).Msg("access check failed")
				writeGateError(w, err)
				return
			}

			switch {
			case verdict.Authorized():
				ctx := context.WithValue(r.Context(), ContextKeyPrincipal, *verdict.Principal)
				next(w, r.WithContext(ctx))
			case verdict.Kind == gate.Forbidden:
				logger.Info().Str("reason", verdict.Reason).Msg("access forbidden")
				writeError(w, http.StatusForbidden, errCodeForbidden, verdict.Reason)
			default:
				logger.Debug().Str("reason", verdict.Reason).Msg("access unauthenticated")
				writeError(w, http.StatusUnauthorized, errCodeUnauthorized, verdict.Reason)
			}
		}
	}
}
