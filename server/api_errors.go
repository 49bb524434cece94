package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/lms-quiz-gate/idp"
)

// Error codes in the OAuth2 error response style.
const (
	errCodeUnauthorized   = "unauthorized"
	errCodeForbidden      = "forbidden"
	errCodeBadGateway     = "bad_gateway"
	errCodeGatewayTimeout = "gateway_timeout"
	errCodeServerError    = "server_error"
	errCodeNotFound       = "not_found"
)

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, ErrorDescription: description})
}

// writeGateError answers a request whose access could not be decided.
func writeGateError(w http.ResponseWriter, err error) {
	switch {
	case idp.IsTimeout(err):
		writeError(w, http.StatusGatewayTimeout, errCodeGatewayTimeout, "identity provider timed out")
	case idp.IsUnavailable(err):
		writeError(w, http.StatusBadGateway, errCodeBadGateway, "identity provider unavailable")
	default:
		writeError(w, http.StatusInternalServerError, errCodeServerError, "internal server error")
	}
}
