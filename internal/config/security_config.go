package config

import "time"

const (
	sessionSecretEnvVar  = "SESSION_SECRET"
	sessionMaxAgeEnvVar  = "SESSION_MAX_AGE"
	sessionBackendEnvVar = "SESSION_BACKEND"
	redisURLEnvVar       = "REDIS_URL"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

type SecurityConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetSessionBackend() string
	GetRedisURL() string
	GetSessionCookieName() string
}

type Security struct {
	SessionSecret  string        `env:"SESSION_SECRET" validate:"required,min=16"`
	MaxSessionAge  time.Duration `env:"SESSION_MAX_AGE" validate:"gt=0"`
	SessionBackend string        `env:"SESSION_BACKEND" validate:"oneof=memory redis"`
	RedisURL       string        `env:"REDIS_URL" validate:"required_if=SessionBackend redis"`
}

var _ SecurityConfig = Security{}

func readSecurity(r *envReader) Security {
	return Security{
		SessionSecret:  r.String(sessionSecretEnvVar, ""),
		MaxSessionAge:  r.Duration(sessionMaxAgeEnvVar, 24*time.Hour),
		SessionBackend: r.String(sessionBackendEnvVar, SessionBackendMemory),
		RedisURL:       r.String(redisURLEnvVar, ""),
	}
}

func (s Security) GetSessionSecret() string {
	return s.SessionSecret
}

func (s Security) GetMaxSessionAge() time.Duration {
	return s.MaxSessionAge
}

func (s Security) GetSessionBackend() string {
	return s.SessionBackend
}

func (s Security) GetRedisURL() string {
	return s.RedisURL
}

func (Security) GetSessionCookieName() string {
	return "quiz_session"
}
