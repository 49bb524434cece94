package handshake

// State is a step of the three-leg OAuth2 login.
type State int

const (
	StateStart State = iota
	StateProviderRedirect
	StateCallback
	StateTokenExchanged
	StateSessionEstablished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateProviderRedirect:
		return "provider_redirect"
	case StateCallback:
		return "callback"
	case StateTokenExchanged:
		return "token_exchanged"
	case StateSessionEstablished:
		return "session_established"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further event is accepted.
func (s State) Terminal() bool {
	return s == StateSessionEstablished || s == StateFailed
}

// Event is an input to the login state machine.
type Event int

const (
	EventLoginRequested Event = iota
	EventCallbackReceived
	EventTokenIssued
	EventSessionStored
	EventStepFailed
)

func (e Event) String() string {
	switch e {
	case EventLoginRequested:
		return "login_requested"
	case EventCallbackReceived:
		return "callback_received"
	case EventTokenIssued:
		return "token_issued"
	case EventSessionStored:
		return "session_stored"
	case EventStepFailed:
		return "step_failed"
	default:
		return "unknown"
	}
}

// Effect is the side effect the controller performs after a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectRedirectToProvider
	EffectExchangeCode
	EffectCreateSession
	EffectSetCookieAndRedirect
	EffectRedirectToFailure
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectRedirectToProvider:
		return "redirect_to_provider"
	case EffectExchangeCode:
		return "exchange_code"
	case EffectCreateSession:
		return "create_session"
	case EffectSetCookieAndRedirect:
		return "set_cookie_and_redirect"
	case EffectRedirectToFailure:
		return "redirect_to_failure"
	default:
		return "unknown"
	}
}

type transitionKey struct {
	from  State
	event Event
}

type transitionTarget struct {
	to     State
	effect Effect
}

var transitions = map[transitionKey]transitionTarget{
	{StateStart, EventLoginRequested}:              {StateProviderRedirect, EffectRedirectToProvider},
	{StateProviderRedirect, EventCallbackReceived}: {StateCallback, EffectExchangeCode},
	{StateCallback, EventTokenIssued}:              {StateTokenExchanged, EffectCreateSession},
	{StateTokenExchanged, EventSessionStored}:      {StateSessionEstablished, EffectSetCookieAndRedirect},
}

// Transition is a pure function of the current state and an event. Any pair
// outside the happy path, including every failure, lands in StateFailed.
// Terminal states absorb all events without further effect.
func Transition(from State, event Event) (State, Effect) {
	if from.Terminal() {
		return from, EffectNone
	}
	if target, ok := transitions[transitionKey{from, event}]; ok {
		return target.to, target.effect
	}
	return StateFailed, EffectRedirectToFailure
}
