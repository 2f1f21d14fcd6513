package kcadmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"golang.org/x/time/rate"

	"github.com/acie-dev/kcauth/pkg/kcauth"
)

// Client is a facade over the Keycloak admin REST API. It is a flat
// composition of independently constructed per-area services, all sharing
// one authentication session: the session owns the token lifecycle, the
// services own nothing but paths and types.
type Client struct {
	Users   *UsersService
	Realms  *RealmsService
	Clients *ClientsService
	Roles   *RolesService
	Groups  *GroupsService
}

// Option customizes a Client at construction.
type Option func(*service)

// WithRealm sets the default realm for calls made with an empty realm
// argument. Defaults to the session config's Realm.
func WithRealm(realm string) Option {
	return func(s *service) { s.realm = realm }
}

// WithRequestRate paces admin requests client-side to at most rps
// requests per second. Useful against shared or production servers where
// bulk operations (realm export, fixture loading) would otherwise burst.
func WithRequestRate(rps float64) Option {
	return func(s *service) { s.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// New builds the admin facade on top of an authenticated session.
func New(session *kcauth.Session, opts ...Option) *Client {
	base := &service{
		session: session,
		realm:   session.Config().Realm,
	}
	for _, opt := range opts {
		opt(base)
	}

	return &Client{
		Users:   &UsersService{service: base},
		Realms:  &RealmsService{service: base},
		Clients: &ClientsService{service: base},
		Roles:   &RolesService{service: base},
		Groups:  &GroupsService{service: base},
	}
}

// service carries the shared plumbing every API area uses.
type service struct {
	session *kcauth.Session
	realm   string
	limiter *rate.Limiter
}

// realmOr resolves an explicit realm argument against the default.
func (s *service) realmOr(realm string) string {
	if realm != "" {
		return realm
	}
	return s.realm
}

// get performs an authenticated GET, decoding a 200 response into out.
func (s *service) get(ctx context.Context, p string, out any) error {
	return s.do(ctx, http.MethodGet, p, nil, out, http.StatusOK)
}

// do performs one authenticated admin request. in (when non-nil) is sent
// as a JSON body; out (when non-nil) receives the decoded response. Any
// status other than expect becomes an *APIError.
func (s *service) do(ctx context.Context, method, p string, in, out any, expect int) error {
	resp, err := s.send(ctx, method, p, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expect {
		return parseAPIError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// create performs a POST and returns the id of the created resource,
// which Keycloak reports only through the Location header.
func (s *service) create(ctx context.Context, p string, in any) (string, error) {
	resp, err := s.send(ctx, http.MethodPost, p, in)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", parseAPIError(resp.StatusCode, body)
	}

	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", nil
	}
	return path.Base(loc), nil
}

// send acquires the session handle and issues the request, honoring the
// client-side rate limit when one is configured.
func (s *service) send(ctx context.Context, method, p string, in any) (*http.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	handle, err := s.session.HandleContext(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	var headers map[string]string
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
		headers = map[string]string{"Content-Type": "application/json"}
	}

	return handle.Do(ctx, method, p, body, headers)
}
