package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jrsteele09/lms-quiz-gate/idp"
	"github.com/jrsteele09/lms-quiz-gate/internal/config"
	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
	"github.com/jrsteele09/lms-quiz-gate/internal/metrics"
	"github.com/jrsteele09/lms-quiz-gate/sessions"
)

// AccessGate decides whether the caller of r may see protected content.
// A non-nil error means no decision could be made (the identity provider or
// the session store failed); it is never folded into a verdict.
type AccessGate interface {
	Authorize(ctx context.Context, r *http.Request) (Verdict, error)
	Strategy() string
}

type Options struct {
	Strategy         string
	CookieName       string
	Cookies          *sessions.CookieSigner
	Store            sessions.Store
	Provider         IdentityProvider
	RequiredCourseID string
}

// New builds the single gate selected by opts.Strategy. The enrollment check
// is attached when RequiredCourseID is set, whatever the strategy.
func New(opts Options) (AccessGate, error) {
	var entitlement EntitlementChecker
	if opts.RequiredCourseID != "" {
		if opts.Provider == nil {
			return nil, fmt.Errorf("[gate New] enrollment check needs an identity provider: %w", apperrors.ErrConfiguration)
		}
		entitlement = NewCourseEnrollment(opts.Provider, opts.RequiredCourseID)
	}

	var g AccessGate
	switch opts.Strategy {
	case config.StrategySession:
		if opts.Cookies == nil || opts.Store == nil || opts.CookieName == "" {
			return nil, fmt.Errorf("[gate New] session gate needs a cookie signer, cookie name and store: %w", apperrors.ErrConfiguration)
		}
		g = NewSessionGate(opts.CookieName, opts.Cookies, opts.Store, entitlement)
	case config.StrategyCookieRelay:
		if opts.Provider == nil {
			return nil, fmt.Errorf("[gate New] cookie relay gate needs an identity provider: %w", apperrors.ErrConfiguration)
		}
		g = NewCookieRelayGate(opts.Provider, entitlement)
	default:
		return nil, fmt.Errorf("[gate New] unknown strategy %q: %w", opts.Strategy, apperrors.ErrConfiguration)
	}
	return instrumented{AccessGate: g}, nil
}

// SessionGate authorizes requests carrying a signed session cookie issued by
// the OAuth2 handshake.
type SessionGate struct {
	cookieName  string
	cookies     *sessions.CookieSigner
	store       sessions.Store
	entitlement EntitlementChecker
}

var _ AccessGate = (*SessionGate)(nil)

func NewSessionGate(cookieName string, cookies *sessions.CookieSigner, store sessions.Store, entitlement EntitlementChecker) *SessionGate {
	return &SessionGate{
		cookieName:  cookieName,
		cookies:     cookies,
		store:       store,
		entitlement: entitlement,
	}
}

func (g *SessionGate) Strategy() string {
	return config.StrategySession
}

func (g *SessionGate) Authorize(ctx context.Context, r *http.Request) (Verdict, error) {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil || cookie.Value == "" {
		return unauthenticated(ReasonMissingCredential), nil
	}

	token, err := g.cookies.Verify(cookie.Value)
	if err != nil {
		return unauthenticated(ReasonInvalidCredential), nil
	}

	principal, err := g.store.Get(ctx, token)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		return unauthenticated(ReasonUnknownSession), nil
	}
	if err != nil {
		return Verdict{}, fmt.Errorf("[gate SessionGate] session lookup: %w", errors.Join(apperrors.ErrInternal, err))
	}

	return decide(ctx, g.entitlement, principal, idp.BearerCredential(principal.AccessToken))
}

// CookieRelayGate keeps no state: the caller's cookie header is validated by
// LearnWorlds on every request.
type CookieRelayGate struct {
	provider    IdentityProvider
	entitlement EntitlementChecker
}

var _ AccessGate = (*CookieRelayGate)(nil)

func NewCookieRelayGate(provider IdentityProvider, entitlement EntitlementChecker) *CookieRelayGate {
	return &CookieRelayGate{provider: provider, entitlement: entitlement}
}

func (g *CookieRelayGate) Strategy() string {
	return config.StrategyCookieRelay
}

func (g *CookieRelayGate) Authorize(ctx context.Context, r *http.Request) (Verdict, error) {
	header := r.Header.Get("Cookie")
	if header == "" {
		return unauthenticated(ReasonMissingCredential), nil
	}

	cred := idp.CookieCredential(header)
	profile, err := g.provider.FetchCurrentUser(ctx, cred)
	if err != nil {
		if idp.IsRejected(err) {
			return unauthenticated(ReasonRejectedByProvider), nil
		}
		return Verdict{}, err
	}

	principal := sessions.Principal{
		UserID:     profile.ID,
		Email:      profile.Email,
		RawProfile: profile.Raw,
	}
	return decide(ctx, g.entitlement, principal, cred)
}

// instrumented counts verdicts per strategy.
type instrumented struct {
	AccessGate
}

func (i instrumented) Authorize(ctx context.Context, r *http.Request) (Verdict, error) {
	v, err := i.AccessGate.Authorize(ctx, r)
	label := v.Kind.String()
	switch {
	case err != nil && idp.IsTimeout(err):
		label = "provider_timeout"
	case err != nil && idp.IsUnavailable(err):
		label = "provider_unavailable"
	case err != nil:
		label = "error"
	}
	metrics.RecordVerdict(i.Strategy(), label)
	return v, err
}
