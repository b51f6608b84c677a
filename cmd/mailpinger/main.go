// Package main is the entry point for the mailpinger CLI.
//
// mailpinger can be used either as a library (SDK) or as a standalone
// binary with YAML configuration. This CLI provides the standalone binary
// approach and is meant to be run from cron or a systemd timer.
//
// Usage:
//
//	mailpinger                         # Probe accounts from ~/.config/mail-pinger/config.yaml
//	mailpinger -c accounts.yaml -v     # Probe with debug logging
//	mailpinger validate -c config.yaml # Validate configuration
//	mailpinger version                 # Show version info
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit statuses.
const (
	exitOK            = 0
	exitFailure       = 1 // usage error or unexpected failure
	exitConfigRead    = 2 // config file missing, unreadable, loose permissions or bad YAML
	exitConfigInvalid = 3 // a config value or flag value is invalid
)

// exitError carries the process exit status alongside the error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

// rootCmd probes every configured account once and exits.
var rootCmd = &cobra.Command{
	Use:   "mailpinger",
	Short: "Keep IMAP accounts alive and check they still work",
	Long: `mailpinger logs in to every configured IMAP account, examines the
mailbox, sends a NOOP and logs out again. It reports how many accounts
were processed successfully.

Individual account failures are logged and do not change the exit status.

Quick start:
  1. Create ~/.config/mail-pinger/config.yaml (mode 0600)
  2. Run: mailpinger
  3. Add it to cron

Example config:
  workers: 10
  timeout: 30s
  accounts:
    - server: imap.example.com:993
      user: alice
      password: ${ALICE_PASSWORD}

Exit codes:
  0 - Run completed (even if some accounts failed)
  1 - Usage error or unexpected failure
  2 - Config file could not be read
  3 - Invalid configuration value`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPing,
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitCode(err)
}

func main() {
	os.Exit(Execute())
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this mailpinger binary.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mailpinger %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

// flagError classifies flag parsing failures: a value that does not parse
// (e.g. --workers abc) is an invalid configuration value, anything else is
// a usage error.
func flagError(cmd *cobra.Command, err error) error {
	if strings.HasPrefix(err.Error(), "invalid argument") {
		return withExitCode(exitConfigInvalid, err)
	}
	return withExitCode(exitFailure, err)
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (default $HOME/.config/mail-pinger/config.yaml)")
	rootCmd.SetFlagErrorFunc(flagError)

	rootCmd.AddCommand(versionCmd)
}
