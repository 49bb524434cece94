// Package lwtest is an in-process fake of the LearnWorlds endpoints used by
// the gate, for tests.
package lwtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	ClientID     = "lw-test-client"
	ClientSecret = "lw-test-secret"

	// RelayCookieName is the browser cookie the fake accepts in place of a token.
	RelayCookieName = "lw_session"
)

type Server struct {
	*httptest.Server

	mu      sync.Mutex
	codes   map[string]string
	tokens  map[string]string
	cookies map[string]string
	members map[string][]string
	outage  int
	delay   time.Duration

	// redirect sends unauthenticated API callers to the login page.
	redirect bool

	ExchangeCalls   atomic.Int32
	UserCalls       atomic.Int32
	EnrollmentCalls atomic.Int32
	LoginPageCalls  atomic.Int32
}

// New starts a fake school. It is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		codes:   map[string]string{},
		tokens:  map[string]string{},
		cookies: map[string]string{},
		members: map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/oauth2/access_token", s.handleToken)
	mux.HandleFunc("GET /api/v2/user", s.handleUser)
	mux.HandleFunc("GET /api/v2/courses/{courseID}/users", s.handleCourseUsers)
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		s.LoginPageCalls.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>Sign in</body></html>"))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// IssueCode makes code redeemable once for an access token belonging to userID.
func (s *Server) IssueCode(code, accessToken, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = accessToken
	s.tokens[accessToken] = userID
}

// LoginCookie makes a browser cookie value valid for userID.
func (s *Server) LoginCookie(value, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[value] = userID
}

// RevokeToken invalidates an access token.
func (s *Server) RevokeToken(accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, accessToken)
}

func (s *Server) Enroll(courseID string, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[courseID] = append(s.members[courseID], userIDs...)
}

// Outage answers every API call with status until reset with 0.
func (s *Server) Outage(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outage = status
}

// RedirectToLogin makes the API answer unknown credentials with a 302 to
// the school login page instead of 401.
func (s *Server) RedirectToLogin(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = on
}

// Delay holds every API call for d before answering, or until the caller gives up.
func (s *Server) Delay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *Server) failing(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	status, delay := s.outage, s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return true
		}
	}
	if status == 0 {
		return false
	}
	http.Error(w, http.StatusText(status), status)
	return true
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.ExchangeCalls.Add(1)
	if s.failing(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	code := r.PostForm.Get("code")
	s.mu.Lock()
	accessToken, ok := s.codes[code]
	delete(s.codes, code)
	s.mu.Unlock()
	if !ok || r.PostForm.Get("grant_type") != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": "refresh-" + accessToken,
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.UserCalls.Add(1)
	if s.failing(w, r) {
		return
	}
	userID, ok := s.caller(r)
	if !ok {
		s.unauthenticated(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":       userID,
		"email":    userID + "@example.com",
		"username": userID,
	})
}

func (s *Server) handleCourseUsers(w http.ResponseWriter, r *http.Request) {
	s.EnrollmentCalls.Add(1)
	if s.failing(w, r) {
		return
	}
	if _, ok := s.caller(r); !ok {
		s.unauthenticated(w, r)
		return
	}

	s.mu.Lock()
	ids := append([]string(nil), s.members[r.PathValue("courseID")]...)
	s.mu.Unlock()

	data := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]string{"id": id})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) caller(r *http.Request) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		userID, found := s.tokens[bearer]
		return userID, found
	}
	if c, err := r.Cookie(RelayCookieName); err == nil {
		userID, found := s.cookies[c.Value]
		return userID, found
	}
	return "", false
}

func (s *Server) unauthenticated(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	redirect := s.redirect
	s.mu.Unlock()
	if redirect {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
