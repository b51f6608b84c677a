package mailpinger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Session step names, as reported in [ProbeError.Step].
const (
	stepParse        = "parse"
	stepDial         = "dial"
	stepLogin        = "login"
	stepCapabilities = "capabilities"
	stepSelect       = "select"
	stepNoop         = "noop"
	stepLogout       = "logout"
)

// errNoSession is returned when a Dialer reports success without a session.
var errNoSession = errors.New("dialer returned no session")

// Probe runs one full health check against acct: parse the server address,
// dial, log in, examine the mailbox, send NOOP and log out.
//
// The first failing step ends the probe and determines the outcome's
// [Kind]. A session that was opened is always closed, but an error from
// that final close never replaces an earlier failure. A failed LOGOUT after
// every other step succeeded does make the outcome a failure.
//
// Each network step is bounded by the configured timeout (see
// [WithTimeout]). Probe never panics on a misbehaving account and is safe
// to call concurrently for different accounts.
func (p *Pinger) Probe(ctx context.Context, acct Account) Outcome {
	start := time.Now()
	err := p.probe(ctx, acct)
	return newOutcome(acct, err, time.Since(start), start)
}

// newOutcome builds an [Outcome], normalising err into a *ProbeError.
func newOutcome(acct Account, err error, latency time.Duration, checkedAt time.Time) Outcome {
	out := Outcome{
		Server:    acct.Server,
		User:      acct.User,
		Latency:   latency,
		CheckedAt: checkedAt,
	}
	if err == nil {
		return out
	}

	var pe *ProbeError
	if !errors.As(err, &pe) {
		kind := KindInternal
		switch {
		case errors.Is(err, context.Canceled):
			kind = KindCanceled
		case errors.Is(err, context.DeadlineExceeded):
			kind = KindTimeout
		}
		pe = &ProbeError{Kind: kind, Server: acct.Server, User: acct.User, Err: err}
	}
	out.Kind = pe.Kind
	out.Err = pe
	return out
}

func (p *Pinger) probe(ctx context.Context, acct Account) error {
	logger := p.logger.With("account", acct)

	addr, err := ParseAddress(acct.Server)
	if err != nil {
		return &ProbeError{Kind: KindAddress, Server: acct.Server, User: acct.User, Step: stepParse, Err: err}
	}

	var sess Session
	err = p.runStep(ctx, acct, stepDial, KindConnection, func(ctx context.Context) error {
		s, err := p.dialer.Dial(ctx, addr)
		if err != nil {
			return err
		}
		if s == nil {
			return errNoSession
		}
		sess = s
		return nil
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Debug("session close failed", "error", cerr.Error())
		}
	}()

	err = p.runStep(ctx, acct, stepLogin, KindAuthentication, func(ctx context.Context) error {
		return sess.Login(ctx, acct.User, acct.Secret)
	})
	if err != nil {
		return err
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		_ = p.runStep(ctx, acct, stepCapabilities, KindProtocol, func(ctx context.Context) error {
			caps, err := sess.Capabilities(ctx)
			if err != nil {
				logger.Debug("capability listing failed", "error", err.Error())
				return nil
			}
			logger.Debug("server capabilities", "capabilities", caps)
			return nil
		})
	}

	err = p.runStep(ctx, acct, stepSelect, KindProtocol, func(ctx context.Context) error {
		messages, err := sess.Select(ctx, p.mailbox)
		if err != nil {
			return err
		}
		logger.Debug("mailbox selected", "mailbox", p.mailbox, "messages", messages)
		return nil
	})
	if err != nil {
		return err
	}

	err = p.runStep(ctx, acct, stepNoop, KindProtocol, sess.Noop)
	if err != nil {
		return err
	}

	return p.runStep(ctx, acct, stepLogout, KindProtocol, sess.Logout)
}

// runStep runs fn under its own step deadline and wraps any failure in a
// *ProbeError of the appropriate kind.
func (p *Pinger) runStep(ctx context.Context, acct Account, step string, fallback Kind, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := fn(stepCtx)
	if err == nil {
		return nil
	}
	return &ProbeError{
		Kind:   classify(ctx, stepCtx, err, fallback),
		Server: acct.Server,
		User:   acct.User,
		Step:   step,
		Err:    err,
	}
}
