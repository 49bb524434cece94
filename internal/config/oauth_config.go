package config

import (
	"strings"
	"time"
)

const (
	schoolURLEnvVar    = "LEARNWORLDS_SCHOOL_URL"
	clientIDEnvVar     = "LEARNWORLDS_CLIENT_ID"
	clientSecretEnvVar = "LEARNWORLDS_CLIENT_SECRET"
	scopesEnvVar       = "LEARNWORLDS_SCOPES"
	callbackURLEnvVar  = "CALLBACK_URL"
	idpTimeoutEnvVar   = "IDP_TIMEOUT"
)

// ProviderConfig describes the LearnWorlds school used by every gate strategy.
type ProviderConfig interface {
	GetSchoolURL() string
	GetProviderTimeout() time.Duration
}

// OAuthConfig is only required by the session strategy.
type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetCallbackURL() string
	GetScopes() []string
	GetAuthFlowTimeout() time.Duration
}

type Provider struct {
	SchoolURL string        `env:"LEARNWORLDS_SCHOOL_URL" validate:"required,url"`
	Timeout   time.Duration `env:"IDP_TIMEOUT" validate:"gt=0,lte=60s"`
}

var _ ProviderConfig = Provider{}

func readProvider(r *envReader) Provider {
	return Provider{
		SchoolURL: strings.TrimRight(r.String(schoolURLEnvVar, ""), "/"),
		Timeout:   r.Duration(idpTimeoutEnvVar, 5*time.Second),
	}
}

func (p Provider) GetSchoolURL() string {
	return p.SchoolURL
}

func (p Provider) GetProviderTimeout() time.Duration {
	return p.Timeout
}

type OAuth struct {
	ClientID     string   `env:"LEARNWORLDS_CLIENT_ID" validate:"required"`
	ClientSecret string   `env:"LEARNWORLDS_CLIENT_SECRET" validate:"required"`
	CallbackURL  string   `env:"CALLBACK_URL" validate:"required,url"`
	Scopes       []string `env:"LEARNWORLDS_SCOPES" validate:"min=1"`
}

var _ OAuthConfig = OAuth{}

func readOAuth(r *envReader) OAuth {
	return OAuth{
		ClientID:     r.String(clientIDEnvVar, ""),
		ClientSecret: r.String(clientSecretEnvVar, ""),
		CallbackURL:  r.String(callbackURLEnvVar, ""),
		Scopes:       r.List(scopesEnvVar, []string{"read:user", "read:courses"}),
	}
}

func (o OAuth) GetClientID() string {
	return o.ClientID
}

func (o OAuth) GetClientSecret() string {
	return o.ClientSecret
}

func (o OAuth) GetCallbackURL() string {
	return o.CallbackURL
}

func (o OAuth) GetScopes() []string {
	return o.Scopes
}

// GetAuthFlowTimeout bounds the time between /start and the provider callback.
func (OAuth) GetAuthFlowTimeout() time.Duration {
	return 10 * time.Minute
}
