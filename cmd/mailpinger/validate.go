package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/mailpinger"
)

// validateCmd validates a config file without probing any account.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a mailpinger configuration file without connecting to any server.

This command checks the file permissions, parses the YAML, expands
environment variables, and validates all fields. Server addresses are
also checked; a malformed address is reported as a warning because at run
time it only fails that one account.

Exit codes:
  0 - Config is valid
  2 - Config file could not be read
  3 - Config contains an invalid value

Example:
  mailpinger validate
  mailpinger validate -c /etc/mail-pinger/config.yaml`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  File:     %s\n", path)
	fmt.Fprintf(out, "  Workers:  %d\n", cfg.Workers)
	fmt.Fprintf(out, "  Timeout:  %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  Mailbox:  %s\n", cfg.Mailbox)
	fmt.Fprintf(out, "  Accounts: %d\n", len(cfg.Accounts))

	for i, a := range cfg.Accounts {
		if _, err := mailpinger.ParseAddress(a.Server); err != nil {
			fmt.Fprintf(out, "  warning: accounts[%d] (%s): %v\n", i, a.User, err)
		}
	}

	return nil
}
