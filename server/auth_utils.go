package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/lms-quiz-gate/internal/config"
)

// crossSite reports whether the frontend is served from another origin than
// this API, in which case the session cookie must be SameSite=None.
func (s *Server) crossSite() bool {
	return config.Origin(s.config.GetFrontendURL()) != config.Origin(s.config.GetCallbackURL())
}

func (s *Server) sessionCookie(r *http.Request, value string, expiresAt time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.IsProduction() || getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	}
	if s.crossSite() {
		// Browsers drop SameSite=None cookies that are not Secure.
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
	}
	if !expiresAt.IsZero() {
		cookie.Expires = expiresAt.UTC()
		cookie.MaxAge = int(time.Until(expiresAt).Seconds())
		if cookie.MaxAge <= 0 {
			cookie.MaxAge = -1
		}
	}
	return cookie
}

func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, value string, expiresAt time.Time) {
	http.SetCookie(w, s.sessionCookie(r, value, expiresAt))
}

func (s *Server) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	cookie := s.sessionCookie(r, "", time.Time{})
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

// redirectSuccess sends the browser back to the frontend.
func (s *Server) redirectSuccess(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.config.GetFrontendURL(), http.StatusFound)
}

// redirectFailure sends the browser to the single authentication failure page.
func redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, RouteAuthFailure, http.StatusFound)
}
