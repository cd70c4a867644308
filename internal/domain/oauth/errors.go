package oauth

import (
	"errors"
)

var (
	ErrMissingConfiguration = errors.New("missing configuration")
	ErrUpstreamAuth         = errors.New("upstream auth error")
	ErrUpstreamTimeout      = errors.New("upstream timeout")
	ErrInvalidSessionToken  = errors.New("invalid session token")
	ErrBadRequest           = errors.New("bad request")
)

// Kind returns the short machine-readable name of the failure class of err.
// It is used in client redirects, JSON bodies and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingConfiguration):
		return "missing_configuration"
	case errors.Is(err, ErrUpstreamTimeout):
		return "upstream_timeout"
	case errors.Is(err, ErrUpstreamAuth):
		return "upstream_auth_error"
	case errors.Is(err, ErrInvalidSessionToken):
		return "invalid_session_token"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "internal_error"
	}
}
