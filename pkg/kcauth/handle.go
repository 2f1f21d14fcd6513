package kcauth

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

// Handle is an authenticated transport bound to exactly one token. The
// bearer token is captured by value at construction: when a session
// refreshes, it builds a fresh Handle rather than mutating this one, so a
// Handle never observes a token change mid-flight.
type Handle struct {
	baseURL    string
	token      string
	httpClient *http.Client
	headers    map[string]string
}

// newHandle constructs a handle for the given token. The handle owns its
// http.Client so releasing its connections never disturbs other handles.
func newHandle(cfg Config, tok *Token) *Handle {
	transport := &http.Transport{}
	if cfg.InsecureSkipTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Handle{
		baseURL: cfg.ServerURL,
		token:   tok.AccessToken,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		headers: cfg.Headers,
	}
}

// AccessToken returns the bearer token this handle was constructed with.
func (h *Handle) AccessToken() string {
	return h.token
}

// Do performs an authenticated request against the server. path must be
// absolute within the server, e.g. "/admin/realms/master/users".
func (h *Handle) Do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("X-Request-Id", newRequestID())
	for key, value := range h.headers {
		req.Header.Set(key, value)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

// closeIdle releases the handle's pooled connections. The handle remains
// usable; only idle transport resources are dropped.
func (h *Handle) closeIdle() {
	h.httpClient.CloseIdleConnections()
}
