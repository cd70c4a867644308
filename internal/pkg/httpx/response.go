package httpx

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tiktok-auth-bridge/internal/domain/oauth"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

func JSONError(c echo.Context, code int, msg string, detail any) error {
	return c.JSON(code, ErrorResponse{Message: msg, Detail: detail})
}

// StatusFor maps a flow error to the HTTP status reported to the caller.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, oauth.ErrBadRequest), errors.Is(err, oauth.ErrMissingConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, oauth.ErrInvalidSessionToken):
		return http.StatusUnauthorized
	case errors.Is(err, oauth.ErrUpstreamAuth), errors.Is(err, oauth.ErrUpstreamTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FlowError writes err as a JSON error named after its kind. Upstream bodies
// are kept out of the response; they are logged by the flow.
func FlowError(c echo.Context, err error) error {
	return JSONError(c, StatusFor(err), oauth.Kind(err), nil)
}
