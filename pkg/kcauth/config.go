package kcauth

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// GrantKind identifies the OAuth2 grant a session authenticates with.
type GrantKind string

const (
	// GrantClientCredentials is machine-to-machine authentication with a
	// confidential client's id and secret.
	GrantClientCredentials GrantKind = "client_credentials"

	// GrantPassword is the resource owner password credentials grant.
	GrantPassword GrantKind = "password"

	// GrantDeviceCode is the device authorization grant (RFC 8628).
	GrantDeviceCode GrantKind = "urn:ietf:params:oauth:grant-type:device_code"

	// GrantRefreshToken exchanges a refresh token for a new access token.
	GrantRefreshToken GrantKind = "refresh_token"
)

// defaultTimeout applies when Config.Timeout is zero.
const defaultTimeout = 30 * time.Second

// Config holds the connection parameters for a Keycloak server. It is a
// pure value holder: a Session copies it at construction and it is never
// mutated afterwards, so a single Config may be shared freely.
type Config struct {
	// ServerURL is the Keycloak base URL, e.g. "https://id.example.com".
	ServerURL string

	// ClientID is the OAuth2 client id.
	ClientID string

	// ClientSecret is the OAuth2 client secret. Optional for public
	// clients (device flow, password grant against a public client).
	ClientSecret string

	// AuthRealm is the realm tokens are issued against. Default "master".
	AuthRealm string

	// Realm is the default realm for admin API calls. Defaults to
	// AuthRealm when empty.
	Realm string

	// InsecureSkipTLS disables TLS certificate verification.
	InsecureSkipTLS bool

	// Timeout bounds each token endpoint round-trip. Default 30s.
	Timeout time.Duration

	// Headers are extra headers sent on every request, e.g. Cloudflare
	// Access service tokens.
	Headers map[string]string
}

// FromEnv builds a Config from the process environment. This is the only
// place the package touches env vars; the core stays environment-agnostic.
//
// Recognized variables: KEYCLOAK_URL, KEYCLOAK_CLIENT_ID,
// KEYCLOAK_CLIENT_SECRET, KEYCLOAK_REALM, KEYCLOAK_AUTH_REALM, and the
// Cloudflare Access pair CF_ACCESS_CLIENT_ID / CF_ACCESS_CLIENT_SECRET,
// which is mapped into request headers.
func FromEnv() Config {
	cfg := Config{
		ServerURL:    os.Getenv("KEYCLOAK_URL"),
		ClientID:     os.Getenv("KEYCLOAK_CLIENT_ID"),
		ClientSecret: os.Getenv("KEYCLOAK_CLIENT_SECRET"),
		AuthRealm:    os.Getenv("KEYCLOAK_AUTH_REALM"),
		Realm:        os.Getenv("KEYCLOAK_REALM"),
	}

	cfID := os.Getenv("CF_ACCESS_CLIENT_ID")
	cfSecret := os.Getenv("CF_ACCESS_CLIENT_SECRET")
	if cfID != "" && cfSecret != "" {
		cfg.Headers = map[string]string{
			"CF-Access-Client-Id":     cfID,
			"CF-Access-Client-Secret": cfSecret,
		}
	}

	return cfg
}

// withDefaults returns a copy with defaults applied. Called once at
// session construction so the stored config is fully resolved.
func (c Config) withDefaults() Config {
	c.ServerURL = strings.TrimSuffix(c.ServerURL, "/")
	if c.AuthRealm == "" {
		c.AuthRealm = "master"
	}
	if c.Realm == "" {
		c.Realm = c.AuthRealm
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// validate checks the fields the given grant requires.
func (c Config) validate(grant GrantKind) error {
	if c.ServerURL == "" {
		return &ConfigError{Field: "ServerURL", Reason: "required"}
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ConfigError{Field: "ServerURL", Reason: "must be an absolute http(s) URL"}
	}
	if c.ClientID == "" {
		return &ConfigError{Field: "ClientID", Reason: "required"}
	}
	if grant == GrantClientCredentials && c.ClientSecret == "" {
		return &ConfigError{Field: "ClientSecret", Reason: "required for the client_credentials grant"}
	}
	return nil
}

// tokenURL is the OpenID Connect token endpoint for the auth realm.
func (c Config) tokenURL() string {
	return c.ServerURL + "/realms/" + url.PathEscape(c.AuthRealm) + "/protocol/openid-connect/token"
}

// deviceAuthURL is the device authorization endpoint for the auth realm.
func (c Config) deviceAuthURL() string {
	return c.ServerURL + "/realms/" + url.PathEscape(c.AuthRealm) + "/protocol/openid-connect/auth/device"
}

// httpClient builds a client honoring the configured timeout and TLS
// settings. Token acquisition uses a short-lived client per call, matching
// the handle's assumption that transports capture their settings at
// construction.
func (c Config) httpClient() *http.Client {
	client := &http.Client{Timeout: c.Timeout}
	if c.InsecureSkipTLS {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}
