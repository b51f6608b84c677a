package mailpinger

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"time"
)

// pingerConfig holds mutable state during Pinger construction.
type pingerConfig struct {
	accounts         []Account
	workers          int
	timeout          time.Duration
	mailbox          string
	dialer           Dialer
	tlsConfig        *tls.Config
	logger           *slog.Logger
	outcomeCallbacks []func(Outcome)
}

// Option is a function that configures a [Pinger] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*pingerConfig) error

// WithAccount adds a single [Account] to the probe list.
//
// Can be called multiple times. The order of accounts is kept but has no
// bearing on the order in which probes complete.
func WithAccount(a Account) Option {
	return func(cfg *pingerConfig) error {
		cfg.accounts = append(cfg.accounts, a)
		return nil
	}
}

// WithAccounts adds multiple [Account] values to the probe list.
//
// Equivalent to calling [WithAccount] for each account.
//
// Example:
//
//	p, err := mailpinger.New(
//	    mailpinger.WithAccounts(accounts...),
//	)
func WithAccounts(accounts ...Account) Option {
	return func(cfg *pingerConfig) error {
		cfg.accounts = append(cfg.accounts, accounts...)
		return nil
	}
}

// WithWorkers sets the maximum number of probes in flight.
//
// This bounds how many IMAP sessions are open at the same time. When it
// exceeds the number of accounts, concurrency is simply the number of
// accounts. Defaults to 10 if not specified.
//
// Returns an error if n is zero or negative.
func WithWorkers(n int) Option {
	return func(cfg *pingerConfig) error {
		if n <= 0 {
			return errors.New("worker count must be positive")
		}
		cfg.workers = n
		return nil
	}
}

// WithTimeout sets the per-step timeout.
//
// Connect (including TLS handshake and greeting), login, select, noop and
// logout each get this long. A step that overruns fails the probe with
// [KindTimeout]. Defaults to 30 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *pingerConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithMailbox sets the mailbox examined as the liveness check.
// Defaults to "INBOX".
//
// Returns an error if name is empty.
func WithMailbox(name string) Option {
	return func(cfg *pingerConfig) error {
		if name == "" {
			return errors.New("mailbox name cannot be empty")
		}
		cfg.mailbox = name
		return nil
	}
}

// WithDialer replaces the IMAP [Dialer].
//
// Useful for tests and for wrapping the default dialer. When set,
// [WithTLSConfig] has no effect.
//
// Returns an error if d is nil.
func WithDialer(d Dialer) Option {
	return func(cfg *pingerConfig) error {
		if d == nil {
			return errors.New("dialer cannot be nil")
		}
		cfg.dialer = d
		return nil
	}
}

// WithTLSConfig sets the TLS configuration used by the default dialer,
// e.g. to trust a private CA.
func WithTLSConfig(c *tls.Config) Option {
	return func(cfg *pingerConfig) error {
		cfg.tlsConfig = c
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Pinger instance.
//
// Per-account failures are logged at warn level, successes at debug,
// and server capabilities at debug. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pingerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithOutcomeCallback registers a function called once per probed account.
//
// Callbacks run sequentially from a single goroutine, in registration
// order, and must not block for long: they delay the delivery of later
// outcomes (not the probes themselves). Panics are recovered and logged.
//
// Example:
//
//	p, err := mailpinger.New(
//	    mailpinger.WithAccounts(accounts...),
//	    mailpinger.WithOutcomeCallback(func(o mailpinger.Outcome) {
//	        if !o.Success() {
//	            alert(o.User, o.Server, o.Reason())
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithOutcomeCallback(cb func(Outcome)) Option {
	return func(cfg *pingerConfig) error {
		if cb == nil {
			return nil
		}
		cfg.outcomeCallbacks = append(cfg.outcomeCallbacks, cb)
		return nil
	}
}
