// Package imapclient provides the IMAP session used by mailpinger probes.
//
// This package is internal to mailpinger. It wraps the emersion go-imap
// client with the handful of commands a keepalive needs (LOGIN or
// AUTHENTICATE PLAIN, CAPABILITY, EXAMINE, NOOP, LOGOUT) and bounds every
// one of them with a context deadline: when the context expires the
// connection is torn down so a stalled server cannot block the caller.
//
// The main components are:
//
//   - [Client]: dials implicit-TLS IMAP servers
//   - [Session]: one authenticated or unauthenticated connection
//
// Users of the mailpinger library should not need this package directly;
// [mailpinger.NewIMAPDialer] exposes it as a Dialer.
package imapclient
