package mailpinger

import "log/slog"

// Account is one mailbox to health-check: the server it lives on and the
// credentials used to log in.
//
// Accounts are treated as read-only once handed to a [Pinger]; probes never
// modify them.
type Account struct {
	// Server is "host", "host:port" or "[ipv6]:port". See [ParseAddress].
	Server string

	// User is the login name.
	User string

	// Secret is the login password. It is never logged.
	Secret string
}

// String returns the user@server identity used in diagnostics.
func (a Account) String() string {
	return a.User + "@" + a.Server
}

// LogValue implements [slog.LogValuer] so accounts can be logged directly
// without leaking the secret.
func (a Account) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("server", a.Server),
		slog.String("user", a.User),
	)
}
