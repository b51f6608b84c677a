package imapclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
)

// ErrNoAuthMechanism is returned by [Session.Login] when the server
// disables LOGIN and does not offer SASL PLAIN either.
var ErrNoAuthMechanism = errors.New("server offers no supported authentication mechanism")

// Client dials IMAP servers over implicit TLS.
//
// Client holds no per-connection state and is safe for concurrent use.
type Client struct {
	tlsConfig   *tls.Config
	dialTimeout time.Duration
}

// NewClient creates a [Client].
//
// tlsConfig may be nil, in which case the system roots are used. The
// ServerName is set from the dialled host unless the config already has one.
// dialTimeout caps connect, handshake and greeting; zero leaves the bound to
// the caller's context.
func NewClient(tlsConfig *tls.Config, dialTimeout time.Duration) *Client {
	return &Client{
		tlsConfig:   tlsConfig,
		dialTimeout: dialTimeout,
	}
}

// Dial connects to host:port, completes the TLS handshake and reads the
// server greeting. The returned session is not yet authenticated.
func (c *Client) Dial(ctx context.Context, host string, port uint16) (*Session, error) {
	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}

	addr := net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10))

	var nd net.Dialer
	raw, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	conn := tls.Client(raw, c.configFor(host))
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("tls handshake with %s failed: %w", addr, err)
	}

	// the greeting read has no context of its own; bound it with conn deadlines
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	ic, err := client.New(conn)
	if !stop() {
		_ = conn.Close()
		return nil, fmt.Errorf("reading greeting from %s: %w", addr, ctx.Err())
	}
	if err != nil {
		_ = conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("reading greeting from %s: %w", addr, ctxErr)
		}
		return nil, fmt.Errorf("reading greeting from %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return &Session{c: ic, addr: addr}, nil
}

// configFor returns the TLS config for one connection to host.
func (c *Client) configFor(host string) *tls.Config {
	var cfg *tls.Config
	if c.tlsConfig != nil {
		cfg = c.tlsConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// Session is one IMAP connection.
//
// A Session is not safe for concurrent use; a probe drives it step by step
// from a single goroutine.
type Session struct {
	c    *client.Client
	addr string
}

// Addr returns the host:port the session is connected to.
func (s *Session) Addr() string {
	return s.addr
}

// do runs fn and tears the connection down if ctx ends first. When that
// happens the context error is returned so callers can tell a deadline from
// a protocol failure.
func (s *Session) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.c.Terminate()
	})
	err := fn()
	if !stop() {
		if err != nil {
			return fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return ctx.Err()
	}
	return err
}

// Login authenticates with LOGIN, or with SASL PLAIN when the server
// advertises LOGINDISABLED.
func (s *Session) Login(ctx context.Context, user, secret string) error {
	return s.do(ctx, func() error {
		disabled, err := s.c.Support("LOGINDISABLED")
		if err != nil {
			return fmt.Errorf("capability: %w", err)
		}
		if !disabled {
			return s.c.Login(user, secret)
		}

		ok, err := s.c.SupportAuth(sasl.Plain)
		if err != nil {
			return fmt.Errorf("capability: %w", err)
		}
		if !ok {
			return ErrNoAuthMechanism
		}
		return s.c.Authenticate(sasl.NewPlainClient("", user, secret))
	})
}

// Capabilities returns the advertised capabilities, sorted.
func (s *Session) Capabilities(ctx context.Context) ([]string, error) {
	var caps []string
	err := s.do(ctx, func() error {
		m, err := s.c.Capability()
		if err != nil {
			return err
		}
		caps = make([]string, 0, len(m))
		for name, ok := range m {
			if ok {
				caps = append(caps, name)
			}
		}
		sort.Strings(caps)
		return nil
	})
	return caps, err
}

// Select opens mailbox read-only (EXAMINE) and returns its message count.
// Read-only keeps the probe from clearing \Recent flags.
func (s *Session) Select(ctx context.Context, mailbox string) (uint32, error) {
	var messages uint32
	err := s.do(ctx, func() error {
		status, err := s.c.Select(mailbox, true)
		if err != nil {
			return err
		}
		messages = status.Messages
		return nil
	})
	return messages, err
}

// Noop sends NOOP.
func (s *Session) Noop(ctx context.Context) error {
	return s.do(ctx, s.c.Noop)
}

// Logout sends LOGOUT and waits for the server to close the session.
func (s *Session) Logout(ctx context.Context) error {
	return s.do(ctx, s.c.Logout)
}

// Close drops the connection without LOGOUT. It is a no-op once the session
// has logged out.
func (s *Session) Close() error {
	if s.c.State() == imap.LogoutState {
		return nil
	}
	return s.c.Terminate()
}
