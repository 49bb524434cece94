package gate

import "github.com/jrsteele09/lms-quiz-gate/sessions"

// Kind is the outcome of one access decision.
type Kind int

const (
	Unauthenticated Kind = iota
	Forbidden
	Authorized
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Reasons attached to non-authorized verdicts. They are safe to show to callers.
const (
	ReasonMissingCredential  = "missing credential"
	ReasonInvalidCredential  = "invalid session credential"
	ReasonUnknownSession     = "session expired or unknown"
	ReasonRejectedByProvider = "credential rejected by identity provider"
	ReasonNotEnrolled        = "user is not enrolled in the required course"
)

// Verdict is computed per request and never stored. Principal is set only
// when Kind is Authorized.
type Verdict struct {
	Kind      Kind
	Reason    string
	Principal *sessions.Principal
}

func (v Verdict) Authorized() bool {
	return v.Kind == Authorized && v.Principal != nil
}

func unauthenticated(reason string) Verdict {
	return Verdict{Kind: Unauthenticated, Reason: reason}
}

func forbidden(reason string) Verdict {
	return Verdict{Kind: Forbidden, Reason: reason}
}

func authorized(p sessions.Principal) Verdict {
	return Verdict{Kind: Authorized, Principal: &p}
}
