package config

import (
	"github.com/jpalmerr/mailpinger"
)

// BuildAccounts converts parsed configuration into SDK Account values,
// keeping file order.
func BuildAccounts(cfg *Config) []mailpinger.Account {
	accounts := make([]mailpinger.Account, 0, len(cfg.Accounts))
	for _, ac := range cfg.Accounts {
		accounts = append(accounts, mailpinger.Account{
			Server: ac.Server,
			User:   ac.User,
			Secret: ac.Password,
		})
	}
	return accounts
}

// BuildOptions converts parsed configuration into options for
// [mailpinger.New].
//
// Zero-valued settings are skipped so the SDK defaults apply. Callers may
// append further options (logger, callbacks, flag overrides); later options
// win.
func BuildOptions(cfg *Config) []mailpinger.Option {
	opts := []mailpinger.Option{
		mailpinger.WithAccounts(BuildAccounts(cfg)...),
	}

	if cfg.Workers != 0 {
		opts = append(opts, mailpinger.WithWorkers(cfg.Workers))
	}
	if cfg.Timeout != 0 {
		opts = append(opts, mailpinger.WithTimeout(cfg.Timeout.Duration()))
	}
	if cfg.Mailbox != "" {
		opts = append(opts, mailpinger.WithMailbox(cfg.Mailbox))
	}

	return opts
}
