/*
Package kcauth manages authentication against a Keycloak server.

# Overview

The package implements the three OAuth2 grants Keycloak exposes for
non-browser clients (client_credentials, password, and the RFC 8628 device
authorization grant) and a Session type that acquires, caches, and
refreshes tokens on behalf of API clients.

# Session

A Session is the main entry point. It authenticates lazily on first
access and hands out a transport Handle bound to the cached token:

	cfg := kcauth.Config{
		ServerURL:    "https://id.example.com",
		AuthRealm:    "master",
		ClientID:     "svc",
		ClientSecret: "secret",
	}

	session, err := kcauth.NewSession(cfg)
	if err != nil {
		log.Fatal(err)
	}

	handle, err := session.HandleContext(ctx) // authenticates on first call
	resp, err := handle.Do(ctx, http.MethodGet, "/admin/realms/master/users", nil, nil)

Repeated accessor calls return the cached handle without network traffic.
Concurrent callers racing on a cold session share a single in-flight token
request. Refresh replaces the token and handle together; a handle is bound
to exactly one token for its whole life.

Each accessor comes in two forms: a context-taking one (HandleContext,
TokenContext, RefreshContext) and a context-free convenience (Handle,
Token, Refresh) bounded only by the configured timeout. Entering a
scoped-usage block (Enter / EnterContext) pins the session to one family;
the other family then fails with an AuthError rather than mixing
cancellation disciplines silently.

# Grants

Sessions default to client credentials. Use WithPasswordGrant or
WithDeviceGrant to select another flow:

	session, err := kcauth.NewSession(cfg,
		kcauth.WithDeviceGrant(func(uri, code string) {
			fmt.Fprintf(os.Stderr, "open %s and enter code %s\n", uri, code)
		}),
	)

The grant procedures (AcquireClientCredentials, AcquirePassword,
AcquireDeviceToken, ...) are also usable directly when no session-level
caching is wanted.

# Errors

Construction problems surface as *ConfigError. Everything that can go
wrong while obtaining or renewing a token — rejected credentials, device
flow denial or expiry, transport failures, mode-guard violations —
surfaces as *AuthError with an RFC 6749 error code. The package never
retries on its own; callers own the retry policy.
*/
package kcauth
