package idp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	apperrors "github.com/jrsteele09/lms-quiz-gate/internal/errors"
)

// CallError is the only error type returned by Client. Kind is either
// ErrAuthRejected or ErrProviderUnavailable; errors.Is matches Kind, the
// timeout sentinel when Timeout is set, and the underlying cause.
type CallError struct {
	Op         string
	StatusCode int
	Kind       error
	Timeout    bool
	Err        error
}

func (e *CallError) Error() string {
	msg := fmt.Sprintf("[idp %s] %v", e.Op, e.Kind)
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CallError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Timeout {
		errs = append(errs, apperrors.ErrProviderTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsTimeout reports whether err is a provider call that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, apperrors.ErrProviderTimeout)
}

// IsRejected reports whether the provider refused the credential with
// 401/403 or redirected it elsewhere.
func IsRejected(err error) bool {
	return errors.Is(err, apperrors.ErrAuthRejected)
}

// IsUnavailable reports whether the provider could not give a usable answer.
func IsUnavailable(err error) bool {
	return errors.Is(err, apperrors.ErrProviderUnavailable)
}

func statusError(op string, status int) *CallError {
	kind := apperrors.ErrProviderUnavailable
	if status == http.StatusUnauthorized || status == http.StatusForbidden || (status >= 300 && status < 400) {
		kind = apperrors.ErrAuthRejected
	}
	return &CallError{Op: op, StatusCode: status, Kind: kind}
}

func transportError(op string, err error) *CallError {
	return &CallError{
		Op:      op,
		Kind:    apperrors.ErrProviderUnavailable,
		Timeout: isTimeout(err),
		Err:     err,
	}
}

func malformedError(op string, err error) *CallError {
	return &CallError{
		Op:   op,
		Kind: apperrors.ErrProviderUnavailable,
		Err:  fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// outcome is the metrics label for a finished call.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsTimeout(err):
		return "timeout"
	case IsRejected(err):
		return "rejected"
	default:
		return "unavailable"
	}
}
