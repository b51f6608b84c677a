// Standalone mock IMAP server for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// It writes a config file and the server certificate into a temporary
// directory and prints the command to run in another terminal, e.g.:
//
//	go run ./cmd/mailpinger -c /tmp/mailpinger-demo/config.yaml --ca-file /tmp/mailpinger-demo/ca.pem
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jpalmerr/mailpinger/internal/imaptest"
)

const addr = "127.0.0.1:1993"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	srv, err := imaptest.Start(addr)
	if err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	defer func() { _ = srv.Close() }()

	dir, err := os.MkdirTemp("", "mailpinger-demo")
	if err != nil {
		logger.Error("failed to create demo directory", "error", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	caFile := filepath.Join(dir, "ca.pem")
	configFile := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf(`workers: 2
timeout: 10s
accounts:
  - server: %s
    user: %s
    password: %s
  - server: localhost:1993
    user: %s
    password: not-the-password
`, addr, imaptest.User, imaptest.Password, imaptest.User)

	if err := os.WriteFile(caFile, srv.CertPEM(), 0o600); err != nil {
		logger.Error("failed to write certificate", "error", err)
		os.Exit(1)
	}
	// the CLI refuses config files readable by group or others
	if err := os.WriteFile(configFile, []byte(config), 0o600); err != nil {
		logger.Error("failed to write config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Mock IMAP server listening on %s (implicit TLS)\n", addr)
	fmt.Printf("Account: %s / %s\n", imaptest.User, imaptest.Password)
	fmt.Println()
	fmt.Println("In another terminal run:")
	fmt.Printf("  go run ./cmd/mailpinger -c %s --ca-file %s -v\n", configFile, caFile)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
