package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiktok-auth-bridge/internal/domain/oauth"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: missing code", oauth.ErrBadRequest), http.StatusBadRequest},
		{oauth.ErrMissingConfiguration, http.StatusBadRequest},
		{fmt.Errorf("%w: expired", oauth.ErrInvalidSessionToken), http.StatusUnauthorized},
		{fmt.Errorf("%w: body", oauth.ErrUpstreamAuth), http.StatusBadGateway},
		{oauth.ErrUpstreamTimeout, http.StatusBadGateway},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestFlowError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := FlowError(c, fmt.Errorf("%w: token exchange failed: body={\"error\":\"invalid_grant\"}", oauth.ErrUpstreamAuth))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "upstream_auth_error", body.Message)
	assert.NotContains(t, rec.Body.String(), "invalid_grant")
}
