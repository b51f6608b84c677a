// Package mailpinger provides a keepalive health check for IMAP mail
// accounts.
//
// For every configured account mailpinger performs a minimal secure session
// (connect over TLS, log in, examine the mailbox, NOOP, log out) and reports
// whether the account is reachable and its credentials still work. Probes
// run concurrently across a bounded worker pool; one account failing,
// hanging or crashing never affects the others.
//
// # Quick Start
//
//	p, _ := mailpinger.New(
//	    mailpinger.WithAccount(mailpinger.Account{
//	        Server: "imap.example.com:993",
//	        User:   "alice",
//	        Secret: os.Getenv("ALICE_PASSWORD"),
//	    }),
//	)
//
//	res := p.Run(ctx) // blocks until every account has been probed
//	fmt.Printf("successfully processed %d entries out of %d\n", res.Succeeded, res.Attempted)
//
// # Configuration
//
// mailpinger uses the functional options pattern for configuration:
//
//	p, err := mailpinger.New(
//	    mailpinger.WithAccounts(accounts...),
//	    mailpinger.WithWorkers(20),
//	    mailpinger.WithTimeout(15 * time.Second),
//	    mailpinger.WithMailbox("INBOX"),
//	    mailpinger.WithLogger(logger),
//	)
//
// # Server Addresses
//
// [Account.Server] accepts "host", "host:port" and "[ipv6]:port". A bare
// host defaults to port 993. See [ParseAddress] for the exact grammar and
// its errors.
//
// # Outcomes
//
// Every probe yields an [Outcome]. Failures carry a [Kind] (address,
// connection, authentication, protocol, timeout, canceled, internal) and a
// [*ProbeError] naming the step that failed. [Pinger.Run] aggregates
// outcomes into a [RunResult].
//
// # Architecture
//
// mailpinger consists of several internal packages (under internal/):
//
//   - internal/poller: Bounded worker pool with race-free aggregation
//   - internal/imapclient: IMAP over TLS with per-step deadlines
//   - internal/report: Prometheus textfile snapshot of a run
//
// The config package loads accounts from YAML and cmd/mailpinger is the
// command-line front end.
package mailpinger
