package kcauth

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAuthError(t *testing.T) {
	t.Parallel()

	t.Run("oauth2 error body", func(t *testing.T) {
		body := []byte(`{"error":"invalid_client","error_description":"Invalid client or Invalid client credentials"}`)
		err := parseAuthError(http.StatusUnauthorized, body)

		require.Equal(t, http.StatusUnauthorized, err.StatusCode)
		require.Equal(t, ErrorCodeInvalidClient, err.Code)
		require.Contains(t, err.Error(), "invalid_client")
		require.Contains(t, err.Error(), "status 401")
	})

	t.Run("non-json body preserved", func(t *testing.T) {
		err := parseAuthError(http.StatusBadGateway, []byte("upstream unavailable"))

		require.Equal(t, http.StatusBadGateway, err.StatusCode)
		require.Equal(t, ErrorCodeServerError, err.Code)
		require.Contains(t, err.Error(), "upstream unavailable")
	})

	t.Run("empty body falls back to status text", func(t *testing.T) {
		err := parseAuthError(http.StatusForbidden, nil)
		require.Contains(t, err.Error(), http.StatusText(http.StatusForbidden))
	})
}

func TestAuthErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := newTransportError(cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, ErrorCodeTransport, err.Code)

	var authErr *AuthError
	require.ErrorAs(t, error(err), &authErr)
}

func TestConfigErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ConfigError{Field: "ServerURL", Reason: "required"}
	require.Equal(t, "invalid configuration: ServerURL: required", err.Error())
}
