package kcauth

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Token Types
// ============================================================================

// Token is the payload returned by the OpenID Connect token endpoint per
// RFC 6749. A Token is immutable once returned: refreshing a session
// replaces the whole value, it is never mutated in place.
type Token struct {
	// AccessToken is the bearer token presented on API requests
	AccessToken string `json:"access_token"`

	// TokenType is normally "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds, when reported
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is the refresh token, when the grant issues one
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope is the space-delimited list of granted scopes
	Scope string `json:"scope,omitempty"`

	// Raw holds the full decoded response body, including fields this
	// struct does not model (id_token, session_state, ...).
	Raw map[string]any `json:"-"`
}

// decodeToken parses a 200 token endpoint body into a Token, keeping the
// raw fields alongside the typed ones.
func decodeToken(body []byte) (*Token, error) {
	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	if err := json.Unmarshal(body, &tok.Raw); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tok, nil
}

// decodeBody unmarshals a response body, normalizing the error message.
func decodeBody(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ============================================================================
// Device Authorization Types
// ============================================================================

// defaultPollInterval is the poll interval used when the device
// authorization response omits one, per RFC 8628 section 3.2.
const defaultPollInterval = 5 * time.Second

// DeviceAuth is the ephemeral state of one device authorization attempt,
// per RFC 8628. It lives only for the duration of the attempt and is never
// persisted.
type DeviceAuth struct {
	// DeviceCode is the code this client polls the token endpoint with
	DeviceCode string

	// UserCode is the short code the user enters on the verification page
	UserCode string

	// VerificationURI is the page where the user enters the code
	VerificationURI string

	// VerificationURIComplete embeds the user code in the URI, when the
	// server provides it
	VerificationURIComplete string

	// ExpiresAt is the absolute deadline for the whole attempt
	ExpiresAt time.Time

	// Interval is the current wait between polls. It only ever grows
	// within one attempt (server-driven slow_down backoff).
	Interval time.Duration
}

// deviceAuthResponse is the wire form of the device authorization endpoint
// response.
type deviceAuthResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval,omitempty"`
}

// ============================================================================
// Poll Outcomes
// ============================================================================

// PollStatus classifies the outcome of a single device token poll.
type PollStatus int

const (
	// PollReady means the user approved and a token was issued.
	PollReady PollStatus = iota

	// PollPending means the user has not acted yet; poll again after the
	// current interval.
	PollPending

	// PollSlowDown means the server wants a longer interval before the
	// next poll.
	PollSlowDown
)

// String returns the string representation of the poll status.
func (s PollStatus) String() string {
	switch s {
	case PollReady:
		return "ready"
	case PollPending:
		return "pending"
	case PollSlowDown:
		return "slow_down"
	default:
		return "unknown"
	}
}

// PollOutcome is the result of a single device token poll. Token is set
// only when Status is PollReady.
type PollOutcome struct {
	Status PollStatus
	Token  *Token
}
