// Package kcadmin provides a typed client for the Keycloak admin REST
// API, built on an authenticated kcauth session.
//
// # Overview
//
// The entry point is New, which wraps a *kcauth.Session in a facade of
// per-area services:
//
//	session, err := kcauth.NewSession(cfg)
//	if err != nil {
//		return err
//	}
//	admin := kcadmin.New(session)
//
//	users, err := admin.Users.List(ctx, "", kcadmin.UserQuery{Max: 20})
//
// The session owns authentication: tokens are acquired lazily on the
// first request and refreshed through the session's normal machinery, so
// a long-lived admin client never deals with tokens directly. All
// services on one Client share the session and its connection pool.
//
// # Realms
//
// Every service method takes a realm argument; the empty string resolves
// to the client's default realm, which comes from the session config or
// the WithRealm option. Note that the realm an admin account authenticates
// against (usually "master") and the realm it manages are independent.
//
// # Errors
//
// Non-2xx admin responses are returned as *APIError carrying the HTTP
// status and the server's message. The IsNotFound and IsConflict helpers
// cover the two statuses callers most often branch on:
//
//	id, err := admin.Users.Create(ctx, "", user)
//	if kcadmin.IsConflict(err) {
//		// username already taken
//	}
//
// # Rate limiting
//
// Bulk operations against shared servers can be paced client-side with
// WithRequestRate, which applies a token-bucket limit across all services
// of the client.
package kcadmin
