package config

import (
	"os"
	"strings"

	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	ProviderConfig
	OAuthConfig
	SecurityConfig
	GateConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsProduction() bool
}

type CorsConfig interface {
	GetFrontendURL() string
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type mainConfig struct {
	EnvVars
	Cors
	Provider
	OAuth
	Security
	Gate
}

// Load reads the process environment. A .env file is loaded first when present.
func Load() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds and validates a Config from lookup. Any missing or malformed
// value is reported as a *ConfigurationError.
func LoadFrom(lookup LookupFunc) (Config, error) {
	r := &envReader{lookup: lookup}

	c := mainConfig{
		EnvVars:  readEnvVars(r),
		Cors:     readCors(r),
		Provider: readProvider(r),
		OAuth:    readOAuth(r),
		Security: readSecurity(r),
		Gate:     readGate(r),
	}

	problems := r.problems
	problems = append(problems, validateConfig(c)...)
	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}
	return c, nil
}

// ConfigurationError lists every problem found while loading the configuration.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) Unwrap() error {
	return apperrors.ErrConfiguration
}
