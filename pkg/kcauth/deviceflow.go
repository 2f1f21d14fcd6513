package kcauth

import (
	"context"
	"log/slog"
	"time"
)

// slowDownIncrement is the server-mandated backoff added to the poll
// interval on each slow_down response, per RFC 8628 section 3.5.
const slowDownIncrement = 5 * time.Second

// DeviceFlowHandler surfaces the verification URI and user code to a
// human, e.g. by printing them or opening a browser. It is invoked exactly
// once per attempt, before the first poll. The handler is fire-and-forget:
// a panic inside it is recovered and does not abort polling.
type DeviceFlowHandler func(verificationURI, userCode string)

// AcquireDeviceToken runs the full device authorization flow: it starts an
// attempt, notifies the handler, then polls the token endpoint until the
// user approves, the server rejects, the attempt expires, or ctx is
// cancelled. Cancellation takes effect within one poll interval and
// returns ctx's error unchanged.
func AcquireDeviceToken(ctx context.Context, cfg Config, notify DeviceFlowHandler) (*Token, error) {
	df := &deviceFlow{cfg: cfg, notify: notify, sleep: sleepContext}
	return df.run(ctx)
}

// deviceFlow drives one device authorization attempt. The sleep hook
// exists so tests can observe the interval sequence without waiting it
// out.
type deviceFlow struct {
	cfg    Config
	notify DeviceFlowHandler
	sleep  func(ctx context.Context, d time.Duration) error
}

func (df *deviceFlow) run(ctx context.Context) (*Token, error) {
	auth, err := StartDeviceAuth(ctx, df.cfg)
	if err != nil {
		return nil, err
	}

	slog.Debug("device authorization started",
		"verification_uri", auth.VerificationURI,
		"expires_at", auth.ExpiresAt,
		"interval", auth.Interval,
	)

	df.notifyUser(auth)

	for {
		if !time.Now().Before(auth.ExpiresAt) {
			return nil, &AuthError{
				Code:        ErrorCodeExpiredToken,
				Description: "device authorization expired",
			}
		}

		if err := df.sleep(ctx, auth.Interval); err != nil {
			return nil, err
		}

		outcome, err := PollDeviceToken(ctx, df.cfg, auth)
		if err != nil {
			return nil, err
		}

		switch outcome.Status {
		case PollReady:
			slog.Debug("device authorization approved")
			return outcome.Token, nil
		case PollSlowDown:
			// The interval only ever grows within one attempt.
			auth.Interval += slowDownIncrement
			slog.Debug("device poll slow_down", "interval", auth.Interval)
		case PollPending:
		}
	}
}

// notifyUser invokes the handler with the URI the user should open,
// preferring the variant with the code already embedded.
func (df *deviceFlow) notifyUser(auth *DeviceAuth) {
	if df.notify == nil {
		return
	}

	uri := auth.VerificationURI
	if auth.VerificationURIComplete != "" {
		uri = auth.VerificationURIComplete
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("device flow handler panicked", "panic", r)
		}
	}()
	df.notify(uri, auth.UserCode)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
