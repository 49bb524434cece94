package server

import (
	"net/http"

	"github.com/jrsteele09/lms-quiz-gate/handshake"
	"github.com/jrsteele09/lms-quiz-gate/idp"
	"github.com/rs/zerolog/log"
)

// knownProvider rejects auth routes for any provider but LearnWorlds. The
// alias route has no {provider} segment.
func knownProvider(w http.ResponseWriter, r *http.Request) bool {
	if provider := r.PathValue("provider"); provider != "" && provider != ProviderLearnWorlds {
		writeError(w, http.StatusNotFound, errCodeNotFound, "unknown identity provider")
		return false
	}
	return true
}

// AuthStartHandler redirects the browser to the LearnWorlds login page.
func (s *Server) AuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !knownProvider(w, r) {
			return
		}
		redirectURL, err := s.handshake.Begin(r.Context())
		if err != nil {
			log.Ctx(r.Context()).Err(err).Msg("could not start login")
			redirectFailure(w, r)
			return
		}
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// AuthCallbackHandler completes the handshake. Every failure ends on the
// failure page; only a fully established session sets the cookie.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !knownProvider(w, r) {
			return
		}
		logger := log.Ctx(r.Context())

		res, err := s.handshake.Complete(r.Context(), handshake.CallbackParams{
			Code:             r.FormValue("code"),
			State:            r.FormValue("state"),
			Error:            r.FormValue("error"),
			ErrorDescription: r.FormValue("error_description"),
		})
		if err != nil || res.State != handshake.StateSessionEstablished {
			event := logger.Warn()
			if err != nil && !idp.IsRejected(err) {
				event = logger.Error()
			}
			event.Err(err).Str("state", res.State.String()).Msg("login failed")
			redirectFailure(w, r)
			return
		}

		value, err := s.cookies.Sign(res.Token, res.ExpiresAt)
		if err != nil {
			logger.Err(err).Msg("could not sign session cookie")
			_ = s.store.Destroy(r.Context(), res.Token)
			redirectFailure(w, r)
			return
		}
		s.SetSessionCookie(w, r, value, res.ExpiresAt)
		s.redirectSuccess(w, r)
	}
}

func (s *Server) AuthFailureHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Authentication failed. Please try again.\n"))
	}
}

// LogoutHandler destroys the session, clears the cookie and returns to the frontend.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(s.config.GetSessionCookieName()); err == nil {
			if token, err := s.cookies.Verify(cookie.Value); err == nil {
				if err := s.store.Destroy(r.Context(), token); err != nil {
					log.Ctx(r.Context()).Err(err).Msg("could not destroy session")
				}
			}
		}
		s.ClearSessionCookie(w, r)
		s.redirectSuccess(w, r)
	}
}
