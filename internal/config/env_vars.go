package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	nodeEnvVar     = "NODE_ENV"
	logLevelEnvVar = "LOG_LEVEL"

	defaultEnv = "DEV"
)

type EnvVars struct {
	Port     string `env:"PORT" validate:"required,numeric"`
	AppName  string `env:"APP_NAME"`
	Env      string `env:"ENV"`
	LogLevel string `env:"LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error"`
}

var _ EnvConfig = EnvVars{}

func readEnvVars(r *envReader) EnvVars {
	env := r.String(envVar, "")
	if env == "" {
		env = r.String(nodeEnvVar, defaultEnv)
	}
	port := strings.TrimPrefix(r.String(portEnvVar, "3000"), ":")
	return EnvVars{
		Port:     port,
		AppName:  r.String(appNameVar, "Quiz Gate"),
		Env:      env,
		LogLevel: strings.ToLower(r.String(logLevelEnvVar, "")),
	}
}

func (e EnvVars) GetPort() string {
	return fmt.Sprintf(":%s", e.Port)
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) IsProduction() bool {
	return strings.EqualFold(e.Env, "production") || strings.EqualFold(e.Env, "prod")
}

func (e EnvVars) GetLogLevel() string {
	if e.LogLevel != "" {
		return e.LogLevel
	}
	if e.Env == defaultEnv {
		return "debug"
	}
	return "info"
}

// LoadDotEnv loads ./.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("[config LoadDotEnv] %s: %w", file, err)
		}
	}
	return nil
}

// envReader reads typed values through a LookupFunc and collects parse problems.
type envReader struct {
	lookup   LookupFunc
	problems []string
}

func (r *envReader) String(name, defaultValue string) string {
	value, ok := r.lookup(name)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return defaultValue
	}
	return value
}

func (r *envReader) Duration(name string, defaultValue time.Duration) time.Duration {
	raw := r.String(name, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s must be a duration such as 5s or 24h", name))
		return defaultValue
	}
	return d
}

func (r *envReader) Bool(name string, defaultValue bool) bool {
	raw := r.String(name, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s must be true or false", name))
		return defaultValue
	}
	return b
}

func (r *envReader) List(name string, defaultValue []string) []string {
	raw := r.String(name, "")
	if raw == "" {
		return defaultValue
	}
	return strings.FieldsFunc(raw, func(c rune) bool {
		return c == ' ' || c == ','
	})
}
