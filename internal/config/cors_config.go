package config

import (
	"net/url"
	"strings"
)

const frontendURLEnvVar = "FRONTEND_URL"

type Cors struct {
	FrontendURL string `env:"FRONTEND_URL" validate:"required,url"`
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func readCors(r *envReader) Cors {
	return Cors{FrontendURL: strings.TrimRight(r.String(frontendURLEnvVar, ""), "/")}
}

func (c Cors) GetFrontendURL() string {
	return c.FrontendURL
}

// GetAllowedOrigins only ever contains the frontend origin.
func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origin := Origin(c.FrontendURL)
	if origin == "" {
		return AllowedOrigins{}
	}
	return AllowedOrigins{origin: nullValue{}}
}

func (Cors) GetAllowedMethods() string {
	return "GET, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}

// Origin returns scheme://host[:port] of rawURL, or "" when it cannot be parsed.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
