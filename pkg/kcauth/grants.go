package kcauth

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Grant procedures for the token endpoint. Each function performs exactly
// one HTTP round-trip and maps any non-200 response into an AuthError; no
// retries happen at this layer.

// AcquireClientCredentials obtains a token with the client_credentials
// grant. The config must carry both ClientID and ClientSecret.
func AcquireClientCredentials(ctx context.Context, cfg Config) (*Token, error) {
	cfg = cfg.withDefaults()
	data := url.Values{
		"grant_type":    {string(GrantClientCredentials)},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
	}

	return requestToken(ctx, cfg, data)
}

// AcquirePassword obtains a token with the resource owner password grant.
// The credentials are placed in the request body and nowhere else; they
// are never logged or retained.
func AcquirePassword(ctx context.Context, cfg Config, username, password string) (*Token, error) {
	return AcquirePasswordOTP(ctx, cfg, username, password, "")
}

// AcquirePasswordOTP is AcquirePassword with a one-time code for realms
// that require OTP on the direct grant flow. An empty otp is omitted from
// the request.
func AcquirePasswordOTP(ctx context.Context, cfg Config, username, password, otp string) (*Token, error) {
	cfg = cfg.withDefaults()
	data := url.Values{
		"grant_type": {string(GrantPassword)},
		"client_id":  {cfg.ClientID},
		"username":   {username},
		"password":   {password},
	}
	if cfg.ClientSecret != "" {
		data.Set("client_secret", cfg.ClientSecret)
	}
	if otp != "" {
		data.Set("totp", otp)
	}

	return requestToken(ctx, cfg, data)
}

// AcquireRefreshToken exchanges a refresh token for a new token pair.
func AcquireRefreshToken(ctx context.Context, cfg Config, refreshToken string) (*Token, error) {
	cfg = cfg.withDefaults()
	data := url.Values{
		"grant_type":    {string(GrantRefreshToken)},
		"client_id":     {cfg.ClientID},
		"refresh_token": {refreshToken},
	}
	if cfg.ClientSecret != "" {
		data.Set("client_secret", cfg.ClientSecret)
	}

	return requestToken(ctx, cfg, data)
}

// StartDeviceAuth begins a device authorization attempt. The returned
// DeviceAuth carries the absolute expiry deadline and the initial poll
// interval (5s when the server does not specify one).
func StartDeviceAuth(ctx context.Context, cfg Config) (*DeviceAuth, error) {
	cfg = cfg.withDefaults()
	data := url.Values{
		"client_id": {cfg.ClientID},
	}
	if cfg.ClientSecret != "" {
		data.Set("client_secret", cfg.ClientSecret)
	}

	status, body, err := postForm(ctx, cfg, cfg.deviceAuthURL(), data)
	if err != nil {
		return nil, newTransportError(err)
	}
	if status != http.StatusOK {
		return nil, parseAuthError(status, body)
	}

	var resp deviceAuthResponse
	if err := decodeBody(body, &resp); err != nil {
		return nil, err
	}

	interval := time.Duration(resp.Interval) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &DeviceAuth{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		ExpiresAt:               time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Interval:                interval,
	}, nil
}

// PollDeviceToken performs a single device token poll. The expected
// pending states are reported as outcomes, not errors: only a definitive
// server rejection (access_denied, expired_token, ...) returns an error.
func PollDeviceToken(ctx context.Context, cfg Config, auth *DeviceAuth) (PollOutcome, error) {
	cfg = cfg.withDefaults()
	data := url.Values{
		"grant_type":  {string(GrantDeviceCode)},
		"client_id":   {cfg.ClientID},
		"device_code": {auth.DeviceCode},
	}
	if cfg.ClientSecret != "" {
		data.Set("client_secret", cfg.ClientSecret)
	}

	status, body, err := postForm(ctx, cfg, cfg.tokenURL(), data)
	if err != nil {
		return PollOutcome{}, newTransportError(err)
	}

	if status == http.StatusOK {
		tok, err := decodeToken(body)
		if err != nil {
			return PollOutcome{}, err
		}
		return PollOutcome{Status: PollReady, Token: tok}, nil
	}

	authErr := parseAuthError(status, body)
	switch authErr.Code {
	case ErrorCodeAuthorizationPending:
		return PollOutcome{Status: PollPending}, nil
	case ErrorCodeSlowDown:
		return PollOutcome{Status: PollSlowDown}, nil
	}
	return PollOutcome{}, authErr
}

// requestToken posts a grant to the token endpoint and decodes the result.
func requestToken(ctx context.Context, cfg Config, data url.Values) (*Token, error) {
	status, body, err := postForm(ctx, cfg, cfg.tokenURL(), data)
	if err != nil {
		return nil, newTransportError(err)
	}
	if status != http.StatusOK {
		return nil, parseAuthError(status, body)
	}

	return decodeToken(body)
}

// postForm performs one form-encoded POST with the config's timeout,
// extra headers and a ULID request id for log correlation. It returns the
// status and full body; transport failures come back unwrapped for the
// caller to classify.
func postForm(ctx context.Context, cfg Config, endpoint string, data url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}
	requestID := newRequestID()
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	slog.Debug("token endpoint request",
		"endpoint", endpoint,
		"grant_type", data.Get("grant_type"),
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	return resp.StatusCode, body, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newRequestID mints a ULID for request correlation.
func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}
