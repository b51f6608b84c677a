package main

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jpalmerr/mailpinger"
	"github.com/jpalmerr/mailpinger/config"
	"github.com/jpalmerr/mailpinger/internal/report"
)

// newLogger creates a JSON logger for CLI use.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// logOutput returns the destination for diagnostics: stderr, or a rotating
// file when path is set.
func logOutput(cmd *cobra.Command, path string) io.WriteCloser {
	if path == "" {
		return nopCloser{cmd.ErrOrStderr()}
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func init() {
	f := rootCmd.Flags()
	f.IntP("workers", "w", 0, "maximum number of accounts probed at once (overrides config)")
	f.Duration("timeout", 0, "per-step timeout, e.g. 15s (overrides config)")
	f.String("mailbox", "", "mailbox to examine (overrides config)")
	f.BoolP("verbose", "v", false, "enable debug logging (server capabilities, mailbox sizes)")
	f.String("log-file", "", "write logs to a rotating file instead of stderr")
	f.String("metrics-file", "", "write a Prometheus textfile snapshot of the run to this path")
	f.String("ca-file", "", "PEM file with additional CA certificates to trust")
}

// loadCAFile builds a TLS config trusting the system roots plus the
// certificates in path.
func loadCAFile(path string) (*tls.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withExitCode(exitConfigRead, fmt.Errorf("failed to read CA file: %w", err))
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(data) {
		return nil, withExitCode(exitConfigInvalid, fmt.Errorf("no certificates found in CA file %s", path))
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// resolveConfigPath returns the --config flag value or the default path.
func resolveConfigPath(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return path, nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "", withExitCode(exitConfigRead, err)
	}
	return path, nil
}

// loadConfig loads the config file and maps failures to exit statuses.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := resolveConfigPath(cmd)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		err = fmt.Errorf("failed to load config %s: %w", path, err)
		if errors.Is(err, config.ErrInvalid) {
			return nil, path, withExitCode(exitConfigInvalid, err)
		}
		return nil, path, withExitCode(exitConfigRead, err)
	}
	return cfg, path, nil
}

// flagOverrides turns explicitly set flags into SDK options.
func flagOverrides(cmd *cobra.Command) ([]mailpinger.Option, error) {
	var opts []mailpinger.Option
	f := cmd.Flags()

	if f.Changed("workers") {
		n, _ := f.GetInt("workers")
		if n <= 0 {
			return nil, withExitCode(exitConfigInvalid, fmt.Errorf("--workers must be positive, got %d", n))
		}
		opts = append(opts, mailpinger.WithWorkers(n))
	}
	if f.Changed("timeout") {
		d, _ := f.GetDuration("timeout")
		if d < config.MinTimeout {
			return nil, withExitCode(exitConfigInvalid, fmt.Errorf("--timeout must be at least %s, got %s", config.MinTimeout, d))
		}
		opts = append(opts, mailpinger.WithTimeout(d))
	}
	if f.Changed("mailbox") {
		name, _ := f.GetString("mailbox")
		if name == "" {
			return nil, withExitCode(exitConfigInvalid, errors.New("--mailbox cannot be empty"))
		}
		opts = append(opts, mailpinger.WithMailbox(name))
	}
	if path, _ := f.GetString("ca-file"); path != "" {
		tlsConfig, err := loadCAFile(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mailpinger.WithTLSConfig(tlsConfig))
	}

	return opts, nil
}

func runPing(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logFile, _ := cmd.Flags().GetString("log-file")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	out := logOutput(cmd, logFile)
	defer out.Close()
	logger := newLogger(out, verbose)

	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		"path", path,
		"accounts", len(cfg.Accounts),
	)

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}

	opts := append(config.BuildOptions(cfg), overrides...)
	opts = append(opts, mailpinger.WithLogger(logger))

	var snapshot *report.Snapshot
	if metricsFile != "" {
		snapshot = report.NewSnapshot()
		opts = append(opts, mailpinger.WithOutcomeCallback(snapshot.Observe))
	}

	p, err := mailpinger.New(opts...)
	if err != nil {
		return withExitCode(exitConfigInvalid, fmt.Errorf("failed to create pinger: %w", err))
	}
	logger.Debug("effective settings",
		"workers", p.Workers(),
		"timeout", p.Timeout().String(),
		"mailbox", p.Mailbox(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := p.Run(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "successfully processed %d entries out of %d\n", res.Succeeded, res.Attempted)

	if ctx.Err() != nil {
		logger.Warn("run interrupted", "attempted", res.Attempted, "succeeded", res.Succeeded)
	}

	if snapshot != nil {
		snapshot.Finish(res, time.Now())
		if err := snapshot.WriteFile(metricsFile); err != nil {
			logger.Error("failed to write metrics snapshot", "path", metricsFile, "error", err)
			return err
		}
		logger.Debug("metrics snapshot written", "path", metricsFile)
	}

	return nil
}
