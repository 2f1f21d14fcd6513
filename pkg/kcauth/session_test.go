package kcauth

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newSessionServer returns a session backed by a counting token endpoint.
// Each successful grant returns a distinct access token ("token-1",
// "token-2", ...). The returned counter tracks token endpoint hits.
func newSessionServer(t *testing.T, opts ...SessionOption) (*Session, *atomic.Int32, *[]url.Values) {
	t.Helper()

	requests := &atomic.Int32{}
	var mu sync.Mutex
	forms := &[]url.Values{}

	_, cfg := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		require.NoError(t, r.ParseForm())
		mu.Lock()
		*forms = append(*forms, r.PostForm)
		mu.Unlock()

		time.Sleep(20 * time.Millisecond) // widen the race window for cold callers
		writeToken(w, fmt.Sprintf("token-%d", n))
	})

	session, err := NewSession(cfg, opts...)
	require.NoError(t, err)

	return session, requests, forms
}

func TestSessionHandleCachesToken(t *testing.T) {
	t.Parallel()

	session, requests, _ := newSessionServer(t)

	h1, err := session.Handle()
	require.NoError(t, err)
	require.Equal(t, "token-1", h1.AccessToken())

	h2, err := session.Handle()
	require.NoError(t, err)
	require.Same(t, h1, h2)

	require.EqualValues(t, 1, requests.Load(), "cache hit must not touch the network")
}

func TestSessionConcreteScenario(t *testing.T) {
	t.Parallel()

	// Stub endpoint returning the documented payload; two Handle calls,
	// exactly one request.
	requests := &atomic.Int32{}
	_, cfg := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":300}`))
	})
	cfg.AuthRealm = "master"
	cfg.ClientID = "svc"
	cfg.ClientSecret = "secret"

	session, err := NewSession(cfg)
	require.NoError(t, err)

	h, err := session.Handle()
	require.NoError(t, err)
	require.Equal(t, "abc", h.AccessToken())

	_, err = session.Handle()
	require.NoError(t, err)
	require.EqualValues(t, 1, requests.Load())
}

func TestSessionSingleFlight(t *testing.T) {
	t.Parallel()

	session, requests, _ := newSessionServer(t)

	const callers = 16
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := session.HandleContext(t.Context())
			if err != nil {
				errs[i] = err
				return
			}
			tokens[i] = h.AccessToken()
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, requests.Load(), "cold callers must share one in-flight authentication")
	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, tokens[0], tokens[i])
	}
}

func TestSessionModeGuard(t *testing.T) {
	t.Parallel()

	t.Run("context entry rejects context-free accessors", func(t *testing.T) {
		t.Parallel()
		session, _, _ := newSessionServer(t)

		require.NoError(t, session.EnterContext(t.Context()))
		defer session.ExitContext()

		_, err := session.Handle()
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, ErrorCodeModeMismatch, authErr.Code)

		_, err = session.Token()
		require.ErrorAs(t, err, &authErr)
		require.Error(t, session.Refresh())

		// The matching family keeps working.
		_, err = session.HandleContext(t.Context())
		require.NoError(t, err)
	})

	t.Run("blocking entry rejects context accessors", func(t *testing.T) {
		t.Parallel()
		session, _, _ := newSessionServer(t)

		require.NoError(t, session.Enter())
		defer session.Exit()

		_, err := session.HandleContext(t.Context())
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, ErrorCodeModeMismatch, authErr.Code)

		_, err = session.Handle()
		require.NoError(t, err)
	})
}

func TestSessionScopedEntry(t *testing.T) {
	t.Parallel()

	session, requests, _ := newSessionServer(t)

	// Entry authenticates eagerly.
	require.NoError(t, session.Enter())
	require.EqualValues(t, 1, requests.Load())

	tok, ok := session.Peek()
	require.True(t, ok)
	require.Equal(t, "token-1", tok.AccessToken)

	// Exit drops the transport but not the token.
	session.Exit()

	tok, ok = session.Peek()
	require.True(t, ok)
	require.Equal(t, "token-1", tok.AccessToken)

	// The next accessor rebuilds a handle from the surviving token with
	// no network round-trip.
	h, err := session.Handle()
	require.NoError(t, err)
	require.Equal(t, "token-1", h.AccessToken())
	require.EqualValues(t, 1, requests.Load())
}

func TestSessionRefreshReplacesAtomically(t *testing.T) {
	t.Parallel()

	session, requests, _ := newSessionServer(t)

	h1, err := session.Handle()
	require.NoError(t, err)
	require.Equal(t, "token-1", h1.AccessToken())

	require.NoError(t, session.Refresh())
	require.EqualValues(t, 2, requests.Load())

	// Every accessor after refresh observes the new binding; the old
	// handle keeps its original token (bound by value, never mutated).
	h2, err := session.Handle()
	require.NoError(t, err)
	require.Equal(t, "token-2", h2.AccessToken())
	require.NotSame(t, h1, h2)
	require.Equal(t, "token-1", h1.AccessToken())

	tok, ok := session.Peek()
	require.True(t, ok)
	require.Equal(t, "token-2", tok.AccessToken)
}

func TestSessionRefreshPrefersRefreshToken(t *testing.T) {
	t.Parallel()

	var forms []url.Values
	var mu sync.Mutex
	_, cfg := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		forms = append(forms, r.PostForm)
		n := len(forms)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			_, _ = w.Write([]byte(`{"access_token":"first","token_type":"Bearer","refresh_token":"refresh-1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"second","token_type":"Bearer","refresh_token":"refresh-2"}`))
	})

	session, err := NewSession(cfg, WithPasswordGrant("alice", "hunter2"))
	require.NoError(t, err)

	_, err = session.Handle()
	require.NoError(t, err)
	require.NoError(t, session.Refresh())

	require.Len(t, forms, 2)
	require.Equal(t, "password", forms[0].Get("grant_type"))
	require.Equal(t, "refresh_token", forms[1].Get("grant_type"))
	require.Equal(t, "refresh-1", forms[1].Get("refresh_token"))

	tok, ok := session.Peek()
	require.True(t, ok)
	require.Equal(t, "second", tok.AccessToken)
}

func TestSessionRefreshFallsBackToGrant(t *testing.T) {
	t.Parallel()

	var forms []url.Values
	var mu sync.Mutex
	_, cfg := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		forms = append(forms, r.PostForm)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("grant_type") == "refresh_token" {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"re-authed","token_type":"Bearer","refresh_token":"r"}`))
	})

	session, err := NewSession(cfg, WithPasswordGrant("alice", "hunter2"))
	require.NoError(t, err)

	_, err = session.Handle()
	require.NoError(t, err)
	require.NoError(t, session.Refresh())

	require.Len(t, forms, 3) // grant, rejected refresh, grant again
	require.Equal(t, "refresh_token", forms[1].Get("grant_type"))
	require.Equal(t, "password", forms[2].Get("grant_type"))
}

func TestSessionPeekBeforeAuthentication(t *testing.T) {
	t.Parallel()

	session, requests, _ := newSessionServer(t)

	tok, ok := session.Peek()
	require.False(t, ok)
	require.Nil(t, tok)
	require.EqualValues(t, 0, requests.Load(), "Peek must never authenticate")
}

func TestSessionAuthFailurePropagates(t *testing.T) {
	t.Parallel()

	_, cfg := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
	})

	session, err := NewSession(cfg)
	require.NoError(t, err)

	_, err = session.Handle()
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, ErrorCodeInvalidClient, authErr.Code)

	// No partial state: failure leaves the session unauthenticated.
	_, ok := session.Peek()
	require.False(t, ok)
}

func TestNewSessionValidates(t *testing.T) {
	t.Parallel()

	_, err := NewSession(Config{ServerURL: "https://id.example.com", ClientID: "svc"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "ClientSecret", cfgErr.Field)

	// Device grant relaxes the secret requirement.
	_, err = NewSession(
		Config{ServerURL: "https://id.example.com", ClientID: "dev-cli"},
		WithDeviceGrant(nil),
	)
	require.NoError(t, err)
}

func TestSessionRefreshDuringColdAuthentication(t *testing.T) {
	t.Parallel()

	// The first grant is held at the server until after a refresh has
	// completed, so its result arrives stale.
	requests := &atomic.Int32{}
	release := make(chan struct{})
	_, cfg := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		if n == 1 {
			<-release
		}
		writeToken(w, fmt.Sprintf("token-%d", n))
	})

	session, err := NewSession(cfg)
	require.NoError(t, err)

	coldDone := make(chan struct{})
	var coldHandle *Handle
	var coldErr error
	go func() {
		defer close(coldDone)
		coldHandle, coldErr = session.Handle()
	}()

	// Wait for the cold grant to reach the server, refresh past it, then
	// let it finish.
	require.Eventually(t, func() bool { return requests.Load() >= 1 },
		time.Second, 5*time.Millisecond)
	require.NoError(t, session.RefreshContext(t.Context()))
	close(release)

	<-coldDone
	require.NoError(t, coldErr)

	// No caller after the completed refresh may observe the pre-refresh
	// binding; the cold caller gets the refreshed handle too.
	require.Equal(t, "token-2", coldHandle.AccessToken())

	h, err := session.Handle()
	require.NoError(t, err)
	require.Equal(t, "token-2", h.AccessToken())

	tok, ok := session.Peek()
	require.True(t, ok)
	require.Equal(t, "token-2", tok.AccessToken)
}

func TestSessionEnterRejectsConflictingReentry(t *testing.T) {
	t.Parallel()

	session, _, _ := newSessionServer(t)

	require.NoError(t, session.Enter())
	defer session.Exit()

	err := session.EnterContext(t.Context())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, ErrorCodeModeMismatch, authErr.Code)

	// The original blocking scope is untouched by the rejected entry.
	_, err = session.Handle()
	require.NoError(t, err)
	_, err = session.HandleContext(t.Context())
	require.ErrorAs(t, err, &authErr)

	// Re-entry under the same mode stays allowed.
	require.NoError(t, session.Enter())
}

func TestSessionTokenAccessors(t *testing.T) {
	t.Parallel()

	session, requests, _ := newSessionServer(t)

	tok, err := session.TokenContext(t.Context())
	require.NoError(t, err)
	require.Equal(t, "token-1", tok.AccessToken)
	require.EqualValues(t, 1, requests.Load())

	tok2, err := session.Token()
	require.NoError(t, err)
	require.Equal(t, tok.AccessToken, tok2.AccessToken)
	require.EqualValues(t, 1, requests.Load())
}
