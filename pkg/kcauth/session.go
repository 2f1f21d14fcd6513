package kcauth

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Mode records how a session's scoped-usage block was entered. A session
// entered via EnterContext rejects the context-free accessors (and vice
// versa): code written for a cooperative scheduler must not fall into
// context-free calls that cannot be cancelled, so the mismatch is a hard
// error rather than a silent hazard.
type Mode int

const (
	// ModeUnset means no scoped-usage block has been entered.
	ModeUnset Mode = iota

	// ModeBlocking means the session was entered via Enter.
	ModeBlocking

	// ModeContext means the session was entered via EnterContext.
	ModeContext
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeContext:
		return "context"
	default:
		return "unset"
	}
}

// grantFunc performs the session's configured grant from scratch.
type grantFunc func(ctx context.Context) (*Token, error)

// Session owns one cached token and the transport handle bound to it. It
// authenticates lazily on first access, shares a single in-flight
// authentication between concurrent callers, and replaces both token and
// handle atomically on refresh. A session is always in one of two caller-
// observable states: unauthenticated (no token) or authenticated (token
// and handle both present).
//
// Sessions are safe for concurrent use.
type Session struct {
	cfg       Config
	grantKind GrantKind
	grant     grantFunc
	log       *slog.Logger

	mu     sync.RWMutex
	flight singleflight.Group
	token  *Token
	handle *Handle
	mode   Mode
	gen    uint64 // bumped on every refresh install
}

// SessionOption customizes a Session at construction.
type SessionOption func(*Session)

// WithPasswordGrant authenticates with the resource owner password grant
// instead of the default client credentials.
func WithPasswordGrant(username, password string) SessionOption {
	return func(s *Session) {
		s.grantKind = GrantPassword
		s.grant = func(ctx context.Context) (*Token, error) {
			return AcquirePassword(ctx, s.cfg, username, password)
		}
	}
}

// WithDeviceGrant authenticates with the device authorization grant. The
// handler surfaces the verification URI and user code; see
// DeviceFlowHandler.
func WithDeviceGrant(notify DeviceFlowHandler) SessionOption {
	return func(s *Session) {
		s.grantKind = GrantDeviceCode
		s.grant = func(ctx context.Context) (*Token, error) {
			return AcquireDeviceToken(ctx, s.cfg, notify)
		}
	}
}

// WithLogger sets the logger for session lifecycle events. Defaults to
// slog.Default(). Credentials and token values are never logged.
func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession validates the configuration for the selected grant and
// returns an unauthenticated session. No network traffic happens until a
// handle or token is requested.
func NewSession(cfg Config, opts ...SessionOption) (*Session, error) {
	s := &Session{
		cfg:       cfg.withDefaults(),
		grantKind: GrantClientCredentials,
	}
	s.grant = func(ctx context.Context) (*Token, error) {
		return AcquireClientCredentials(ctx, s.cfg)
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	if err := s.cfg.validate(s.grantKind); err != nil {
		return nil, err
	}

	return s, nil
}

// Config returns the session's resolved configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// ============================================================================
// Handle accessors
// ============================================================================

// Handle returns the authenticated transport handle, authenticating first
// if no token is cached. It is the context-free accessor: requests are
// bounded by the configured timeout only. Fails with AuthError if the
// session was entered via EnterContext.
func (s *Session) Handle() (*Handle, error) {
	if err := s.checkMode(ModeBlocking); err != nil {
		return nil, err
	}
	return s.ensureHandle(context.Background())
}

// HandleContext is Handle with caller-controlled cancellation. Fails with
// AuthError if the session was entered via Enter.
func (s *Session) HandleContext(ctx context.Context) (*Handle, error) {
	if err := s.checkMode(ModeContext); err != nil {
		return nil, err
	}
	return s.ensureHandle(ctx)
}

// Token returns the cached token, authenticating first if necessary.
// Subject to the same mode guard as Handle.
func (s *Session) Token() (*Token, error) {
	if err := s.checkMode(ModeBlocking); err != nil {
		return nil, err
	}
	if _, err := s.ensureHandle(context.Background()); err != nil {
		return nil, err
	}
	tok, _ := s.Peek()
	return tok, nil
}

// TokenContext is Token with caller-controlled cancellation.
func (s *Session) TokenContext(ctx context.Context) (*Token, error) {
	if err := s.checkMode(ModeContext); err != nil {
		return nil, err
	}
	if _, err := s.ensureHandle(ctx); err != nil {
		return nil, err
	}
	tok, _ := s.Peek()
	return tok, nil
}

// Peek returns the cached token without triggering authentication. The
// second return is false when the session has never authenticated (or was
// never authenticated successfully).
func (s *Session) Peek() (*Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != nil
}

// ensureHandle returns the cached handle, authenticating on a miss. All
// concurrent cold callers share one in-flight authentication: the
// singleflight group guarantees at most one token request per cache miss.
func (s *Session) ensureHandle(ctx context.Context) (*Handle, error) {
	s.mu.RLock()
	if s.handle != nil {
		h := s.handle
		s.mu.RUnlock()
		return h, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.flight.Do("authenticate", func() (any, error) {
		// Re-check under the write lock: a refresh or a previous flight
		// may have installed a handle already.
		s.mu.Lock()
		if s.handle != nil {
			h := s.handle
			s.mu.Unlock()
			return h, nil
		}
		tok := s.token
		gen := s.gen
		s.mu.Unlock()

		// A token can outlive its handle (scoped exit drops only the
		// transport). Rebuild without a network round-trip in that case.
		if tok == nil {
			var err error
			tok, err = s.grant(ctx)
			if err != nil {
				return nil, err
			}
			s.log.Debug("session authenticated", "grant_type", string(s.grantKind))
		}

		s.mu.Lock()
		// A refresh may have completed while the grant was in flight.
		// The refreshed binding always wins over the older grant result.
		if s.gen != gen {
			if s.handle != nil {
				h := s.handle
				s.mu.Unlock()
				return h, nil
			}
			if s.token != nil {
				tok = s.token
			}
		}
		h := newHandle(s.cfg, tok)
		s.token = tok
		s.handle = h
		s.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// ============================================================================
// Refresh
// ============================================================================

// Refresh unconditionally replaces the cached token and handle. When the
// current token carries a refresh token, the refresh_token grant is tried
// first; otherwise, or when that fails, the session's original grant runs
// again. Subject to the mode guard like the other context-free accessors.
func (s *Session) Refresh() error {
	if err := s.checkMode(ModeBlocking); err != nil {
		return err
	}
	return s.refresh(context.Background())
}

// RefreshContext is Refresh with caller-controlled cancellation.
func (s *Session) RefreshContext(ctx context.Context) error {
	if err := s.checkMode(ModeContext); err != nil {
		return err
	}
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) error {
	_, err, _ := s.flight.Do("refresh", func() (any, error) {
		s.mu.RLock()
		current := s.token
		s.mu.RUnlock()

		tok, err := s.reauthenticate(ctx, current)
		if err != nil {
			return nil, err
		}

		h := newHandle(s.cfg, tok)

		// Swap token and handle together so no reader observes a handle
		// bound to a stale token. The generation bump tells any in-flight
		// cold authentication its result is already outdated.
		s.mu.Lock()
		old := s.handle
		s.token = tok
		s.handle = h
		s.gen++
		s.mu.Unlock()

		if old != nil {
			old.closeIdle()
		}
		return nil, nil
	})
	return err
}

// reauthenticate obtains a replacement token, preferring the cheaper
// refresh_token grant when one is available.
func (s *Session) reauthenticate(ctx context.Context, current *Token) (*Token, error) {
	if current != nil && current.RefreshToken != "" {
		tok, err := AcquireRefreshToken(ctx, s.cfg, current.RefreshToken)
		if err == nil {
			s.log.Debug("session refreshed", "grant_type", string(GrantRefreshToken))
			return tok, nil
		}
		// Refresh tokens expire and get revoked server-side; fall back to
		// the original grant rather than failing a recoverable refresh.
		s.log.Debug("refresh token rejected, re-running grant",
			"grant_type", string(s.grantKind), "error", err)
	}

	tok, err := s.grant(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Debug("session re-authenticated", "grant_type", string(s.grantKind))
	return tok, nil
}

// ============================================================================
// Scoped usage and the mode guard
// ============================================================================

// Enter begins a context-free scoped-usage block: it authenticates
// eagerly and records the mode, after which the context-taking accessors
// are rejected until Exit. Entering while a context-scoped block is open
// fails with the mode-mismatch AuthError; it never flips the mode under
// the first caller.
func (s *Session) Enter() error {
	return s.enter(context.Background(), ModeBlocking)
}

// EnterContext begins a context-scoped usage block: it authenticates
// eagerly and records the mode, after which the context-free accessors are
// rejected until ExitContext. Entering while a blocking block is open
// fails with the mode-mismatch AuthError.
func (s *Session) EnterContext(ctx context.Context) error {
	return s.enter(ctx, ModeContext)
}

func (s *Session) enter(ctx context.Context, m Mode) error {
	s.mu.Lock()
	if s.mode != ModeUnset && s.mode != m {
		current := s.mode
		s.mu.Unlock()
		return &AuthError{
			Code: ErrorCodeModeMismatch,
			Description: "session already entered in " + current.String() +
				" mode; exit it before entering in " + m.String() + " mode",
		}
	}
	prev := s.mode
	s.mode = m
	s.mu.Unlock()

	if _, err := s.ensureHandle(ctx); err != nil {
		s.setMode(prev)
		return err
	}
	return nil
}

// Exit ends a scoped-usage block entered with Enter. The handle's
// transport resources are released and the mode cleared; the cached token
// survives, so the next accessor rebuilds a handle without a network call.
func (s *Session) Exit() {
	s.exit()
}

// ExitContext ends a scoped-usage block entered with EnterContext.
func (s *Session) ExitContext() {
	s.exit()
}

func (s *Session) exit() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mode = ModeUnset
	s.mu.Unlock()

	if h != nil {
		h.closeIdle()
	}
}

// setMode records the mode a scoped-usage block was entered under.
func (s *Session) setMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// checkMode rejects an accessor whose mode conflicts with the one the
// session was entered under.
func (s *Session) checkMode(want Mode) error {
	s.mu.RLock()
	mode := s.mode
	s.mu.RUnlock()

	if mode == ModeUnset || mode == want {
		return nil
	}
	return &AuthError{
		Code: ErrorCodeModeMismatch,
		Description: "session was entered in " + mode.String() +
			" mode; use the matching accessor family",
	}
}
