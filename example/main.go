// Command example runs mailpinger against a local IMAP server.
//
// Usage:
//
//	go run ./example
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/mailpinger"
	"github.com/jpalmerr/mailpinger/internal/imaptest"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// start an in-memory IMAP server with a self-signed certificate
	srv, err := imaptest.Start("127.0.0.1:0")
	if err != nil {
		logger.Error("failed to start mock IMAP server", "error", err)
		os.Exit(1)
	}
	defer func() { _ = srv.Close() }()

	_, port, _ := net.SplitHostPort(srv.Addr())

	accounts := []mailpinger.Account{
		// healthy
		{Server: srv.Addr(), User: imaptest.User, Secret: imaptest.Password},
		// same server by name, rejected credentials
		{Server: net.JoinHostPort("localhost", port), User: imaptest.User, Secret: "expired"},
		// nothing listens on port 1
		{Server: "127.0.0.1:1", User: "carol", Secret: "pw"},
		// malformed address, never dialled
		{Server: "imap::example", User: "dave", Secret: "pw"},
	}

	p, err := mailpinger.New(
		mailpinger.WithAccounts(accounts...),
		mailpinger.WithWorkers(2),
		mailpinger.WithTimeout(5*time.Second),
		mailpinger.WithTLSConfig(srv.TLSConfig()),
		mailpinger.WithLogger(logger),
		mailpinger.WithOutcomeCallback(func(o mailpinger.Outcome) {
			status := "ok"
			if !o.Success() {
				status = string(o.Kind)
			}
			fmt.Printf("  %-40s %-15s %s\n", o.User+"@"+o.Server, status, o.Latency.Round(time.Millisecond))
		}),
	)
	if err != nil {
		logger.Error("failed to create pinger", "error", err)
		os.Exit(1)
	}

	// set up context with signal handling so Ctrl+C aborts the run
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println()
	fmt.Printf("  Probing %d accounts (mock server on %s)\n\n", len(accounts), srv.Addr())

	res := p.Run(ctx)

	fmt.Println()
	fmt.Printf("  successfully processed %d entries out of %d\n\n", res.Succeeded, res.Attempted)
}
