package mailpinger

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/jpalmerr/mailpinger/internal/imapclient"
)

// Dialer opens secure sessions to mail servers.
//
// Implementations must be safe for concurrent use: a [Pinger] calls Dial
// from several workers at once. Dial must honour the context deadline.
type Dialer interface {
	Dial(ctx context.Context, addr Address) (Session, error)
}

// Session is one open connection to a mail server.
//
// Every blocking method takes a context whose deadline bounds that step.
// A Session is used by a single goroutine.
type Session interface {
	// Login authenticates the session.
	Login(ctx context.Context, user, secret string) error

	// Capabilities lists what the server advertises. Used for diagnostics.
	Capabilities(ctx context.Context) ([]string, error)

	// Select opens the named mailbox read-only and returns its message count.
	Select(ctx context.Context, mailbox string) (uint32, error)

	// Noop confirms the session is still responsive.
	Noop(ctx context.Context) error

	// Logout ends the session politely.
	Logout(ctx context.Context) error

	// Close releases the connection. Safe to call after Logout.
	Close() error
}

// imapDialer adapts the internal IMAP client to [Dialer].
type imapDialer struct {
	client *imapclient.Client
}

// NewIMAPDialer returns the default [Dialer]: IMAP over implicit TLS.
//
// tlsConfig may be nil. The ServerName is filled in per connection.
// dialTimeout bounds TCP connect, TLS handshake and greeting together when
// the context has no earlier deadline; zero means rely on the context only.
func NewIMAPDialer(tlsConfig *tls.Config, dialTimeout time.Duration) Dialer {
	return imapDialer{client: imapclient.NewClient(tlsConfig, dialTimeout)}
}

func (d imapDialer) Dial(ctx context.Context, addr Address) (Session, error) {
	s, err := d.client.Dial(ctx, addr.Host, addr.Port)
	if err != nil {
		return nil, err
	}
	return s, nil
}
