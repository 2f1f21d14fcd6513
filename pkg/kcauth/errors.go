package kcauth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// OAuth2 Error Codes (RFC 6749 / RFC 8628)
// ============================================================================

const (
	// OAuth2 error codes per RFC 6749
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnauthorizedClient   = "unauthorized_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeInvalidScope         = "invalid_scope"
	ErrorCodeServerError          = "server_error"
	ErrorCodeAccessDenied         = "access_denied"

	// Device authorization grant error codes per RFC 8628
	ErrorCodeAuthorizationPending = "authorization_pending"
	ErrorCodeSlowDown             = "slow_down"
	ErrorCodeExpiredToken         = "expired_token"

	// Client-side error codes (no HTTP exchange involved)
	ErrorCodeTransport    = "transport_error"
	ErrorCodeModeMismatch = "execution_mode_mismatch"
)

// ============================================================================
// ConfigError
// ============================================================================

// ConfigError reports malformed or incomplete configuration. It is returned
// at construction time and is never worth retrying.
type ConfigError struct {
	// Field is the configuration field that failed validation
	Field string

	// Reason is a human-readable description of the failure
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ============================================================================
// AuthError
// ============================================================================

// AuthError represents any failure to obtain or renew a token: rejected
// credentials, a denied or expired device flow, a transport failure, or a
// session mode-guard violation. It is the single error family callers of
// this package need to handle; the Code field distinguishes the cause.
//
// This layer never retries automatically. Retry policy is a caller concern.
type AuthError struct {
	// StatusCode is the HTTP status of the failing response, or 0 when the
	// failure happened before a response was received.
	StatusCode int

	// Code is the OAuth2 error code reported by the server, or one of the
	// client-side ErrorCode* constants.
	Code string

	// Description is a human-readable description of the error.
	Description string

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString("authentication failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, ": %s", e.Code)
	}
	if e.Description != "" {
		fmt.Fprintf(&b, ": %s", e.Description)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying transport error for errors.Is/As chains.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// newTransportError wraps a transport-level failure (connection refused,
// TLS handshake, timeout) so callers only ever see the AuthError family.
func newTransportError(err error) *AuthError {
	return &AuthError{
		Code:        ErrorCodeTransport,
		Description: "token endpoint request failed",
		Err:         err,
	}
}

// errorResponse is the OAuth2 error body per RFC 6749 section 5.2.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// parseAuthError converts a non-200 token endpoint response into an
// AuthError. It prefers the structured OAuth2 error body and falls back to
// embedding the raw body so diagnostics are never lost.
func parseAuthError(statusCode int, body []byte) *AuthError {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &AuthError{
			StatusCode:  statusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	desc := strings.TrimSpace(string(body))
	if desc == "" {
		desc = http.StatusText(statusCode)
	}
	return &AuthError{
		StatusCode:  statusCode,
		Code:        ErrorCodeServerError,
		Description: desc,
	}
}
