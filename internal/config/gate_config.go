package config

const (
	gateStrategyEnvVar   = "GATE_STRATEGY"
	requiredCourseEnvVar = "REQUIRED_COURSE_ID"
	fetchProfileEnvVar   = "FETCH_PROFILE"

	// StrategySession runs the OAuth2 handshake and keeps principals server side.
	StrategySession     = "session"
	// StrategyCookieRelay forwards the caller's LearnWorlds cookie for every request.
	StrategyCookieRelay = "cookie-relay"
)

type GateConfig interface {
	GetGateStrategy() string
	GetRequiredCourseID() string
	EnrollmentRequired() bool
	GetFetchProfile() bool
}

type Gate struct {
	Strategy         string `env:"GATE_STRATEGY" validate:"oneof=session cookie-relay"`
	RequiredCourseID string `env:"REQUIRED_COURSE_ID"`
	FetchProfile     bool   `env:"FETCH_PROFILE"`
}

var _ GateConfig = Gate{}

func readGate(r *envReader) Gate {
	return Gate{
		Strategy:         r.String(gateStrategyEnvVar, StrategySession),
		RequiredCourseID: r.String(requiredCourseEnvVar, ""),
		FetchProfile:     r.Bool(fetchProfileEnvVar, true),
	}
}

func (g Gate) GetGateStrategy() string {
	return g.Strategy
}

func (g Gate) GetRequiredCourseID() string {
	return g.RequiredCourseID
}

func (g Gate) EnrollmentRequired() bool {
	return g.RequiredCourseID != ""
}

// GetFetchProfile is forced on when enrollment is checked, the user id comes from the profile.
func (g Gate) GetFetchProfile() bool {
	return g.FetchProfile || g.EnrollmentRequired()
}
