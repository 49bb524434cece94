package handshake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/lms-quiz-gate/handshake/authflowrepo"
	"github.com/jrsteele09/lms-quiz-gate/idp"
	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/jrsteele09/lms-quiz-gate/internal/metrics"
	"github.com/jrsteele09/lms-quiz-gate/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Provider is the part of the LearnWorlds client the handshake depends on.
type Provider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	FetchCurrentUser(ctx context.Context, cred idp.Credential) (*idp.Profile, error)
}

var _ Provider = (*idp.Client)(nil)

type Options struct {
	Provider      Provider
	Store         sessions.Store
	Flows         authflowrepo.Repo
	FetchProfile  bool
	MaxSessionAge time.Duration
}

// Controller drives Transition with real I/O. It is the only code that
// creates sessions.
type Controller struct {
	provider      Provider
	store         sessions.Store
	flows         authflowrepo.Repo
	fetchProfile  bool
	maxSessionAge time.Duration
	now           func() time.Time
}

func NewController(opts Options) (*Controller, error) {
	if opts.Provider == nil || opts.Store == nil || opts.Flows == nil {
		return nil, fmt.Errorf("[handshake NewController] provider, store and flow repo are required: %w", apperrors.ErrConfiguration)
	}
	maxAge := opts.MaxSessionAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Controller{
		provider:      opts.Provider,
		store:         opts.Store,
		flows:         opts.Flows,
		fetchProfile:  opts.FetchProfile,
		maxSessionAge: maxAge,
		now:           time.Now,
	}, nil
}

// WithClock replaces the time source, for tests.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Begin records a fresh state value and returns the provider authorize URL.
func (c *Controller) Begin(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := c.flows.Put(ctx, authflowrepo.AuthFlowState{State: state, CreatedAt: c.now()}); err != nil {
		metrics.RecordHandshake("start_failed")
		return "", fmt.Errorf("[handshake Begin] record state: %w", errors.Join(apperrors.ErrInternal, err))
	}
	metrics.RecordHandshake("started")
	return c.provider.AuthCodeURL(state), nil
}

// CallbackParams are the query parameters of the provider redirect.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Result is the outcome of Complete. On success State is
// StateSessionEstablished and Token names the new session.
type Result struct {
	State     State
	Token     sessions.Token
	ExpiresAt time.Time
	Principal sessions.Principal
}

// flow tracks one callback through the state machine.
type flow struct {
	state State
}

func (f *flow) advance(event Event) Effect {
	var effect Effect
	f.state, effect = Transition(f.state, event)
	return effect
}

// Complete validates the callback, exchanges the code, optionally fetches the
// profile and stores the new Principal. The session is created last, so a
// failure in any earlier step stores nothing.
func (c *Controller) Complete(ctx context.Context, params CallbackParams) (Result, error) {
	f := &flow{state: StateProviderRedirect}

	fail := func(outcome string, err error) (Result, error) {
		f.advance(EventStepFailed)
		metrics.RecordHandshake(outcome)
		return Result{State: f.state}, err
	}

	// The state value is consumed even when the provider reports an error.
	if _, err := c.flows.Take(ctx, params.State); err != nil {
		if errors.Is(err, apperrors.ErrInvalidState) {
			return fail("invalid_state", err)
		}
		return fail("state_lookup_failed", fmt.Errorf("[handshake Complete] state lookup: %w", errors.Join(apperrors.ErrInternal, err)))
	}
	if params.Error != "" {
		return fail("denied", fmt.Errorf("%w: %s %s", apperrors.ErrProviderDenied, params.Error, params.ErrorDescription))
	}
	if params.Code == "" {
		return fail("missing_code", apperrors.ErrMissingCode)
	}

	if f.advance(EventCallbackReceived) != EffectExchangeCode {
		return fail("invalid_transition", apperrors.ErrInvalidTransition)
	}
	tok, err := c.provider.ExchangeCode(ctx, params.Code)
	if err != nil {
		return fail("exchange_failed", err)
	}

	if f.advance(EventTokenIssued) != EffectCreateSession {
		return fail("invalid_transition", apperrors.ErrInvalidTransition)
	}
	principal, err := c.principal(ctx, tok)
	if err != nil {
		return fail("profile_failed", err)
	}
	token, err := c.store.Create(ctx, principal)
	if err != nil {
		return fail("store_failed", fmt.Errorf("[handshake Complete] create session: %w", errors.Join(apperrors.ErrInternal, err)))
	}

	if f.advance(EventSessionStored) != EffectSetCookieAndRedirect {
		_ = c.store.Destroy(ctx, token)
		return fail("invalid_transition", apperrors.ErrInvalidTransition)
	}
	metrics.RecordHandshake("established")
	log.Ctx(ctx).Info().Str("user_id", principal.UserID).Msg("session established")

	return Result{
		State:     f.state,
		Token:     token,
		ExpiresAt: principal.ExpiresAt,
		Principal: principal,
	}, nil
}

// principal builds the session principal from the issued token. The session
// never outlives the access token it carries.
func (c *Controller) principal(ctx context.Context, tok *oauth2.Token) (sessions.Principal, error) {
	now := c.now()
	p := sessions.Principal{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
		CreatedAt:    now,
		ExpiresAt:    now.Add(c.maxSessionAge),
	}
	if !tok.Expiry.IsZero() && tok.Expiry.Before(p.ExpiresAt) {
		p.ExpiresAt = tok.Expiry
	}

	if !c.fetchProfile {
		return p, nil
	}
	profile, err := c.provider.FetchCurrentUser(ctx, idp.BearerCredential(tok.AccessToken))
	if err != nil {
		return sessions.Principal{}, err
	}
	p.UserID = profile.ID
	p.Email = profile.Email
	p.RawProfile = profile.Raw
	return p, nil
}
