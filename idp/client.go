package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/lms-quiz-gate/internal/config"
	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/jrsteele09/lms-quiz-gate/internal/metrics"
	"golang.org/x/oauth2"
)

// LearnWorlds endpoints, relative to the school URL.
const (
	PathAuthorize   = "/admin/oauth2/authorize"
	PathAccessToken = "/admin/oauth2/access_token"
	PathCurrentUser = "/api/v2/user"
	PathCourseUsers = "/api/v2/courses/%s/users"

	// lwClientHeader identifies the OAuth client on LearnWorlds API calls.
	lwClientHeader = "Lw-Client"

	maxResponseBytes = 1 << 20
	defaultTimeout   = 5 * time.Second
)

// Operation names used in errors and metrics.
const (
	OpExchangeCode     = "exchange_code"
	OpFetchCurrentUser = "fetch_current_user"
	OpFetchEnrollment  = "fetch_enrollment"
)

type Options struct {
	SchoolURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// Timeout bounds every outbound call. Zero means five seconds.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a stateless wrapper around the LearnWorlds OAuth2 and user APIs.
// Each method performs exactly one round trip and never retries.
type Client struct {
	schoolURL  string
	clientID   string
	timeout    time.Duration
	httpClient *http.Client
	oauth      *oauth2.Config
	validate   *validator.Validate
}

func New(opts Options) (*Client, error) {
	schoolURL := strings.TrimRight(opts.SchoolURL, "/")
	if config.Origin(schoolURL) == "" {
		return nil, fmt.Errorf("[idp New] invalid school URL %q: %w", opts.SchoolURL, apperrors.ErrConfiguration)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Transport: http.DefaultTransport}
	if opts.HTTPClient != nil {
		clone := *opts.HTTPClient
		httpClient = &clone
	}
	// A redirect is how the school answers an unusable session, usually with
	// its login page. It is reported as a status, never followed.
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		schoolURL:  schoolURL,
		clientID:   opts.ClientID,
		timeout:    timeout,
		httpClient: httpClient,
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   schoolURL + PathAuthorize,
				TokenURL:  schoolURL + PathAccessToken,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		validate: validator.New(),
	}, nil
}

// NewFromConfig builds a Client for the configured school.
func NewFromConfig(c config.Config) (*Client, error) {
	return New(Options{
		SchoolURL:    c.GetSchoolURL(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetCallbackURL(),
		Scopes:       c.GetScopes(),
		Timeout:      c.GetProviderTimeout(),
	})
}

// AuthCodeURL is the provider login page the browser is redirected to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens at the token endpoint.
// A code the provider refuses (4xx) is ErrAuthRejected.
func (c *Client) ExchangeCode(ctx context.Context, code string) (tok *oauth2.Token, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderCall(OpExchangeCode, outcome(err), time.Since(start)) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err = c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError(err)
	}
	if tok.AccessToken == "" {
		return nil, malformedError(OpExchangeCode, errors.New("missing access_token"))
	}
	return tok, nil
}

func exchangeError(err error) *CallError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		status := retrieveErr.Response.StatusCode
		callErr := statusError(OpExchangeCode, status)
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			callErr.Kind = apperrors.ErrAuthRejected
		}
		callErr.Err = err
		return callErr
	}
	return transportError(OpExchangeCode, err)
}

// FetchCurrentUser returns the profile of whoever owns cred.
func (c *Client) FetchCurrentUser(ctx context.Context, cred Credential) (profile *Profile, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderCall(OpFetchCurrentUser, outcome(err), time.Since(start)) }()

	var payload userPayload
	raw, err := c.getJSON(ctx, OpFetchCurrentUser, PathCurrentUser, cred, &payload)
	if err != nil {
		return nil, err
	}
	return &Profile{
		ID:       string(payload.ID),
		Email:    payload.Email,
		Username: payload.Username,
		Raw:      raw,
	}, nil
}

// FetchEnrollment returns the member ids of courseID as seen with cred.
// Only the first page of the course user list is read, so members listed
// on later pages of a large course are reported as not enrolled.
func (c *Client) FetchEnrollment(ctx context.Context, cred Credential, courseID string) (record *EnrollmentRecord, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderCall(OpFetchEnrollment, outcome(err), time.Since(start)) }()

	var payload enrollmentPayload
	path := fmt.Sprintf(PathCourseUsers, url.PathEscape(courseID))
	if _, err := c.getJSON(ctx, OpFetchEnrollment, path, cred, &payload); err != nil {
		return nil, err
	}

	record = &EnrollmentRecord{
		CourseID:      courseID,
		MemberUserIDs: make(map[string]struct{}, len(payload.Data)),
	}
	for _, member := range payload.Data {
		record.MemberUserIDs[string(member.ID)] = struct{}{}
	}
	return record, nil
}

// getJSON performs one GET, maps the status, then decodes and validates the body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, cred Credential, out any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.schoolURL+path, nil)
	if err != nil {
		return nil, transportError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.clientID != "" {
		req.Header.Set(lwClientHeader, c.clientID)
	}
	cred.apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, statusError(op, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(op, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, malformedError(op, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return nil, malformedError(op, err)
	}
	return json.RawMessage(body), nil
}
