package idp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/lms-quiz-gate/idp"
	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "lw-client-1"
	testClientSecret = "lw-secret-1"
	testRedirectURL  = "https://api.example.com/auth/learnworlds/callback"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *idp.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := idp.New(idp.Options{
		SchoolURL:    srv.URL,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testRedirectURL,
		Scopes:       []string{"read:user", "read:courses"},
		Timeout:      timeout,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeSchoolURL(t *testing.T) {
	_, err := idp.New(idp.Options{SchoolURL: "school.example.com"})
	require.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestAuthCodeURL(t *testing.T) {
	c, err := idp.New(idp.Options{
		SchoolURL:   "https://school.example.com/",
		ClientID:    testClientID,
		RedirectURL: testRedirectURL,
		Scopes:      []string{"read:user", "read:courses"},
	})
	require.NoError(t, err)

	u := c.AuthCodeURL("state-123")
	assert.True(t, strings.HasPrefix(u, "https://school.example.com"+idp.PathAuthorize+"?"))
	assert.Contains(t, u, "client_id="+testClientID)
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "response_type=code")
	assert.Contains(t, u, "scope=read%3Auser+read%3Acourses")
}

func TestFetchCurrentUser(t *testing.T) {
	t.Run("bearer token returns profile", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, idp.PathCurrentUser, r.URL.Path)
			assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
			assert.Equal(t, testClientID, r.Header.Get("Lw-Client"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"u-1","email":"ana@example.com","username":"ana"}`))
		}, time.Second)

		profile, err := c.FetchCurrentUser(context.Background(), idp.BearerCredential("token-abc"))
		require.NoError(t, err)
		assert.Equal(t, "u-1", profile.ID)
		assert.Equal(t, "ana@example.com", profile.Email)
		assert.JSONEq(t, `{"id":"u-1","email":"ana@example.com","username":"ana"}`, string(profile.Raw))
	})

	t.Run("relayed cookie is forwarded", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "lw_session=xyz", r.Header.Get("Cookie"))
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"id":1234}`))
		}, time.Second)

		profile, err := c.FetchCurrentUser(context.Background(), idp.CookieCredential("lw_session=xyz"))
		require.NoError(t, err)
		assert.Equal(t, "1234", profile.ID)
	})

	statusTests := []struct {
		name        string
		status      int
		rejected    bool
		unavailable bool
	}{
		{"401 is rejected", http.StatusUnauthorized, true, false},
		{"403 is rejected", http.StatusForbidden, true, false},
		{"404 is unavailable", http.StatusNotFound, false, true},
		{"429 is unavailable", http.StatusTooManyRequests, false, true},
		{"500 is unavailable", http.StatusInternalServerError, false, true},
		{"503 is unavailable", http.StatusServiceUnavailable, false, true},
	}
	for _, tt := range statusTests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}, time.Second)

			_, err := c.FetchCurrentUser(context.Background(), idp.BearerCredential("t"))
			require.Error(t, err)
			assert.Equal(t, tt.rejected, idp.IsRejected(err))
			assert.Equal(t, tt.unavailable, idp.IsUnavailable(err))

			var callErr *idp.CallError
			require.ErrorAs(t, err, &callErr)
			assert.Equal(t, tt.status, callErr.StatusCode)
			assert.Equal(t, idp.OpFetchCurrentUser, callErr.Op)
		})
	}

	t.Run("redirect to login page is rejected and not followed", func(t *testing.T) {
		var loginPageHits atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/login" {
				loginPageHits.Add(1)
				_, _ = w.Write([]byte(`<html>Sign in</html>`))
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
		}, time.Second)

		_, err := c.FetchCurrentUser(context.Background(), idp.CookieCredential("lw_session=stale"))
		require.Error(t, err)
		assert.True(t, idp.IsRejected(err))
		assert.False(t, idp.IsUnavailable(err))
		assert.NotErrorIs(t, err, apperrors.ErrMalformedResponse)
		assert.Equal(t, int32(0), loginPageHits.Load())

		var callErr *idp.CallError
		require.ErrorAs(t, err, &callErr)
		assert.Equal(t, http.StatusFound, callErr.StatusCode)
	})

	t.Run("caller supplied client is not modified", func(t *testing.T) {
		custom := &http.Client{Timeout: time.Second}
		_, err := idp.New(idp.Options{SchoolURL: "https://school.example.com", HTTPClient: custom})
		require.NoError(t, err)
		assert.Nil(t, custom.CheckRedirect)
	})

	t.Run("payload without id is unavailable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"email":"ana@example.com"}`))
		}, time.Second)

		_, err := c.FetchCurrentUser(context.Background(), idp.BearerCredential("t"))
		require.Error(t, err)
		assert.True(t, idp.IsUnavailable(err))
		assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
	})

	t.Run("non json body is unavailable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>login</html>`))
		}, time.Second)

		_, err := c.FetchCurrentUser(context.Background(), idp.BearerCredential("t"))
		assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
		assert.False(t, idp.IsRejected(err))
	})

	t.Run("slow provider times out", func(t *testing.T) {
		release := make(chan struct{})
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, 50*time.Millisecond)
		defer close(release)

		start := time.Now()
		_, err := c.FetchCurrentUser(context.Background(), idp.BearerCredential("t"))
		require.Error(t, err)
		assert.True(t, idp.IsTimeout(err))
		assert.True(t, idp.IsUnavailable(err))
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("connection refused is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := idp.New(idp.Options{SchoolURL: url, Timeout: time.Second})
		require.NoError(t, err)

		_, err = c.FetchCurrentUser(context.Background(), idp.BearerCredential("t"))
		require.Error(t, err)
		assert.True(t, idp.IsUnavailable(err))
		assert.False(t, idp.IsRejected(err))
	})
}

func TestFetchEnrollment(t *testing.T) {
	t.Run("members are collected", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v2/courses/civil-procedure/users", r.URL.Path)
			_, _ = w.Write([]byte(`{"data":[{"id":"u-1"},{"id":"u-2"}],"meta":{"page":1,"totalPages":1}}`))
		}, time.Second)

		record, err := c.FetchEnrollment(context.Background(), idp.BearerCredential("t"), "civil-procedure")
		require.NoError(t, err)
		assert.Equal(t, "civil-procedure", record.CourseID)
		assert.True(t, record.Contains("u-1"))
		assert.True(t, record.Contains("u-2"))
		assert.False(t, record.Contains("u-3"))
		assert.False(t, record.Contains(""))
	})

	t.Run("empty course is valid", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}, time.Second)

		record, err := c.FetchEnrollment(context.Background(), idp.BearerCredential("t"), "c")
		require.NoError(t, err)
		assert.Empty(t, record.MemberUserIDs)
	})

	t.Run("missing data is unavailable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"users":[{"id":"u-1"}]}`))
		}, time.Second)

		_, err := c.FetchEnrollment(context.Background(), idp.BearerCredential("t"), "c")
		assert.True(t, idp.IsUnavailable(err))
		assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
	})

	t.Run("member without id is unavailable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"email":"x@example.com"}]}`))
		}, time.Second)

		_, err := c.FetchEnrollment(context.Background(), idp.BearerCredential("t"), "c")
		assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
	})
}

func TestExchangeCode(t *testing.T) {
	t.Run("valid code returns token in one round trip", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, idp.PathAccessToken, r.URL.Path)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "good-code", r.PostForm.Get("code"))
			assert.Equal(t, testClientID, r.PostForm.Get("client_id"))
			assert.Equal(t, testClientSecret, r.PostForm.Get("client_secret"))
			assert.Equal(t, testRedirectURL, r.PostForm.Get("redirect_uri"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`))
		}, time.Second)

		tok, err := c.ExchangeCode(context.Background(), "good-code")
		require.NoError(t, err)
		assert.Equal(t, "at-1", tok.AccessToken)
		assert.Equal(t, "rt-1", tok.RefreshToken)
		assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("invalid code is rejected", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		}, time.Second)

		_, err := c.ExchangeCode(context.Background(), "expired-code")
		require.Error(t, err)
		assert.True(t, idp.IsRejected(err))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("provider error is unavailable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, time.Second)

		_, err := c.ExchangeCode(context.Background(), "code")
		require.Error(t, err)
		assert.True(t, idp.IsUnavailable(err))
	})

	t.Run("missing access token is unavailable", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
		}, time.Second)

		_, err := c.ExchangeCode(context.Background(), "code")
		require.Error(t, err)
		assert.True(t, idp.IsUnavailable(err))
	})
}
