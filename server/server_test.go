package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/lms-quiz-gate/content"
	"github.com/jrsteele09/lms-quiz-gate/idp"
	"github.com/jrsteele09/lms-quiz-gate/internal/config"
	"github.com/jrsteele09/lms-quiz-gate/internal/lwtest"
	"github.com/jrsteele09/lms-quiz-gate/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	frontendURL = "http://frontend.test"
	callbackURL = "http://api.test/auth/learnworlds/callback"
	courseID    = "civil-procedure"
)

type harness struct {
	t        *testing.T
	lw       *lwtest.Server
	api      *httptest.Server
	client   *http.Client
	frontend string
}

func newHarness(t *testing.T, overrides map[string]string) *harness {
	t.Helper()
	lw := lwtest.New(t)

	env := map[string]string{
		"ENV":                       "test",
		"PORT":                      "3000",
		"FRONTEND_URL":              frontendURL,
		"LEARNWORLDS_SCHOOL_URL":    lw.URL,
		"LEARNWORLDS_CLIENT_ID":     lwtest.ClientID,
		"LEARNWORLDS_CLIENT_SECRET": lwtest.ClientSecret,
		"CALLBACK_URL":              callbackURL,
		"SESSION_SECRET":            "server-test-session-secret",
		"IDP_TIMEOUT":               "1s",
	}
	for k, v := range overrides {
		env[k] = v
	}
	cfg, err := config.LoadFrom(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)

	deps, err := server.Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	srv, err := server.New(cfg, deps)
	require.NoError(t, err)

	api := httptest.NewServer(srv)
	t.Cleanup(api.Close)

	return &harness{
		t:   t,
		lw:  lw,
		api: api,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		frontend: env["FRONTEND_URL"],
	}
}

func (h *harness) get(path string, cookies ...*http.Cookie) *http.Response {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.api.URL+path, nil)
	require.NoError(h.t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return h.do(req)
}

func (h *harness) do(req *http.Request) *http.Response {
	h.t.Helper()
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// login runs the whole handshake for userID and returns the session cookie.
func (h *harness) login(userID string) *http.Cookie {
	h.t.Helper()

	start := h.get("/auth/learnworlds/start")
	require.Equal(h.t, http.StatusFound, start.StatusCode)
	authorize, err := url.Parse(start.Header.Get("Location"))
	require.NoError(h.t, err)
	require.Equal(h.t, idp.PathAuthorize, authorize.Path)
	state := authorize.Query().Get("state")

	code := "code-" + userID
	h.lw.IssueCode(code, "access-"+userID, userID)

	callback := h.get("/auth/learnworlds/callback?code=" + code + "&state=" + url.QueryEscape(state))
	require.Equal(h.t, http.StatusFound, callback.StatusCode)
	require.Equal(h.t, h.frontend, callback.Header.Get("Location"))

	for _, c := range callback.Cookies() {
		if c.Name == "quiz_session" {
			return c
		}
	}
	h.t.Fatal("no session cookie set")
	return nil
}

func decodeError(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func TestNoCredentialIsUnauthorizedWithoutProviderCall(t *testing.T) {
	h := newHarness(t, map[string]string{"REQUIRED_COURSE_ID": courseID})

	resp := h.get("/api/quiz-data")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Contains(t, body["error_description"], "missing credential")

	assert.Zero(t, h.lw.UserCalls.Load())
	assert.Zero(t, h.lw.EnrollmentCalls.Load())
}

func TestValidSessionWithoutEnrollmentGetsContent(t *testing.T) {
	h := newHarness(t, nil)
	cookie := h.login("u-1")

	resp := h.get("/api/quiz-data", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	quiz, err := content.New()
	require.NoError(t, err)
	assert.Equal(t, quiz.Questions(), readBody(t, resp))
	assert.Zero(t, h.lw.EnrollmentCalls.Load())

	data := h.get("/api/data", cookie)
	require.Equal(t, http.StatusOK, data.StatusCode)
	assert.Equal(t, quiz.Dataset(), readBody(t, data))
}

func TestEnrollmentRequired(t *testing.T) {
	t.Run("non member is forbidden", func(t *testing.T) {
		h := newHarness(t, map[string]string{"REQUIRED_COURSE_ID": courseID})
		h.lw.Enroll(courseID, "u-2", "u-3")
		cookie := h.login("u-1")

		resp := h.get("/api/quiz-data", cookie)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "forbidden", decodeError(t, resp)["error"])
	})

	t.Run("member is served", func(t *testing.T) {
		h := newHarness(t, map[string]string{"REQUIRED_COURSE_ID": courseID})
		h.lw.Enroll(courseID, "u-1")
		cookie := h.login("u-1")

		for i := 0; i < 2; i++ {
			resp := h.get("/api/quiz-data", cookie)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}
		assert.Equal(t, int32(2), h.lw.EnrollmentCalls.Load(), "membership is checked on every request")
	})

	t.Run("revoked access token is unauthorized", func(t *testing.T) {
		h := newHarness(t, map[string]string{"REQUIRED_COURSE_ID": courseID})
		h.lw.Enroll(courseID, "u-1")
		cookie := h.login("u-1")
		h.lw.RevokeToken("access-u-1")

		resp := h.get("/api/quiz-data", cookie)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestInvalidCodeCreatesNoSession(t *testing.T) {
	h := newHarness(t, nil)

	start := h.get("/auth/learnworlds")
	require.Equal(t, http.StatusFound, start.StatusCode)
	authorize, err := url.Parse(start.Header.Get("Location"))
	require.NoError(t, err)
	state := authorize.Query().Get("state")

	callback := h.get("/auth/learnworlds/callback?code=expired&state=" + url.QueryEscape(state))
	require.Equal(t, http.StatusFound, callback.StatusCode)
	assert.Equal(t, "/auth/failure", callback.Header.Get("Location"))
	assert.Empty(t, callback.Cookies())

	failure := h.get("/auth/failure")
	assert.Equal(t, http.StatusUnauthorized, failure.StatusCode)
	assert.Contains(t, string(readBody(t, failure)), "Authentication failed")

	resp := h.get("/api/quiz-data", callback.Cookies()...)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCallbackRejectsForgedState(t *testing.T) {
	h := newHarness(t, nil)
	h.lw.IssueCode("code", "access-1", "u-1")

	callback := h.get("/auth/learnworlds/callback?code=code&state=forged")
	require.Equal(t, http.StatusFound, callback.StatusCode)
	assert.Equal(t, "/auth/failure", callback.Header.Get("Location"))
	assert.Zero(t, h.lw.ExchangeCalls.Load(), "code is never exchanged without a valid state")
}

func TestProviderFailuresAreNotUnauthorized(t *testing.T) {
	t.Run("timeout is 504", func(t *testing.T) {
		h := newHarness(t, map[string]string{"REQUIRED_COURSE_ID": courseID, "IDP_TIMEOUT": "100ms"})
		h.lw.Enroll(courseID, "u-1")
		cookie := h.login("u-1")
		h.lw.Delay(2 * time.Second)

		resp := h.get("/api/quiz-data", cookie)
		require.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
		assert.Equal(t, "gateway_timeout", decodeError(t, resp)["error"])
	})

	t.Run("outage is 502", func(t *testing.T) {
		h := newHarness(t, map[string]string{"REQUIRED_COURSE_ID": courseID})
		h.lw.Enroll(courseID, "u-1")
		cookie := h.login("u-1")
		h.lw.Outage(http.StatusServiceUnavailable)

		resp := h.get("/api/quiz-data", cookie)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "bad_gateway", decodeError(t, resp)["error"])
	})
}

func TestSessionCookieAttributes(t *testing.T) {
	h := newHarness(t, nil)
	cookie := h.login("u-1")

	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	// The frontend and the callback are on different origins.
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.True(t, cookie.Secure)
	assert.Positive(t, cookie.MaxAge)

	tampered := *cookie
	tampered.Value = cookie.Value[:len(cookie.Value)-2] + "xx"
	resp := h.get("/api/quiz-data", &tampered)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSameOriginCookieIsLax(t *testing.T) {
	h := newHarness(t, map[string]string{"FRONTEND_URL": "http://api.test"})
	cookie := h.login("u-1")

	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
}

func TestLogoutDestroysSession(t *testing.T) {
	h := newHarness(t, nil)
	cookie := h.login("u-1")

	logout := h.get("/auth/logout", cookie)
	require.Equal(t, http.StatusFound, logout.StatusCode)
	assert.Equal(t, frontendURL, logout.Header.Get("Location"))
	cleared := logout.Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "quiz_session", cleared[0].Name)
	assert.Negative(t, cleared[0].MaxAge)

	resp := h.get("/api/quiz-data", cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownProvider(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.get("/auth/google/start")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCors(t *testing.T) {
	h := newHarness(t, nil)

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, h.api.URL+"/api/quiz-data", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		return h.do(req)
	}

	allowed := preflight(frontendURL)
	assert.Equal(t, http.StatusNoContent, allowed.StatusCode)
	assert.Equal(t, frontendURL, allowed.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", allowed.Header.Get("Access-Control-Allow-Credentials"))

	denied := preflight("http://evil.test")
	assert.Empty(t, denied.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodGet, h.api.URL+"/api/quiz-data", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", frontendURL)
	resp := h.do(req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, frontendURL, resp.Header.Get("Access-Control-Allow-Origin"), "rejections stay readable by the frontend")
}

func TestCookieRelayStrategy(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GATE_STRATEGY":             "cookie-relay",
		"LEARNWORLDS_CLIENT_ID":     "",
		"LEARNWORLDS_CLIENT_SECRET": "",
		"SESSION_SECRET":            "",
	})
	h.lw.LoginCookie("browser-session", "u-1")
	relay := &http.Cookie{Name: lwtest.RelayCookieName, Value: "browser-session"}

	resp := h.get("/api/quiz-data", relay)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stale := h.get("/api/quiz-data", &http.Cookie{Name: lwtest.RelayCookieName, Value: "expired"})
	assert.Equal(t, http.StatusUnauthorized, stale.StatusCode)

	missing := h.get("/api/quiz-data")
	assert.Equal(t, http.StatusUnauthorized, missing.StatusCode)
	assert.Equal(t, int32(2), h.lw.UserCalls.Load())

	login := h.get("/auth/learnworlds/start")
	assert.Equal(t, http.StatusNotFound, login.StatusCode, "no handshake routes in relay mode")
}

func TestCookieRelayLoginRedirectIsUnauthorized(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GATE_STRATEGY":             "cookie-relay",
		"LEARNWORLDS_CLIENT_ID":     "",
		"LEARNWORLDS_CLIENT_SECRET": "",
		"SESSION_SECRET":            "",
	})
	h.lw.RedirectToLogin(true)

	resp := h.get("/api/quiz-data", &http.Cookie{Name: lwtest.RelayCookieName, Value: "signed-out"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decodeError(t, resp)["error"])
	assert.Equal(t, int32(0), h.lw.LoginPageCalls.Load(), "login page must not be fetched")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)

	health := h.get("/healthz")
	require.Equal(t, http.StatusOK, health.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(health.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "session", body["strategy"])

	_ = h.get("/api/quiz-data")
	metrics := h.get("/metrics")
	require.Equal(t, http.StatusOK, metrics.StatusCode)
	text := string(readBody(t, metrics))
	assert.True(t, strings.Contains(text, "quiz_gate_access_verdicts_total"))
	assert.True(t, strings.Contains(text, "quiz_gate_http_requests_total"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, nil)

	resp := h.get("/api/quiz-data")
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
}
