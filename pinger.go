package mailpinger

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpalmerr/mailpinger/internal/poller"
)

const (
	// DefaultWorkers is the worker count used when none is configured.
	DefaultWorkers = 10

	// DefaultTimeout is the per-step timeout used when none is configured.
	DefaultTimeout = 30 * time.Second

	// DefaultMailbox is the mailbox examined by each probe.
	DefaultMailbox = "INBOX"
)

// Pinger probes a fixed set of mail accounts.
//
// Pinger is created with [New] and functional options, and is immutable
// afterwards. [Pinger.Run] may be called any number of times, including
// concurrently; each call is an independent run.
//
// The typical lifecycle is:
//
//	p, err := mailpinger.New(mailpinger.WithAccounts(accounts...))
//	if err != nil {
//	    slog.Error("failed to create pinger", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	res := p.Run(ctx)
//	fmt.Printf("%d/%d accounts healthy\n", res.Succeeded, res.Attempted)
type Pinger struct {
	accounts         []Account
	workers          int
	timeout          time.Duration
	mailbox          string
	dialer           Dialer
	logger           *slog.Logger
	outcomeCallbacks []func(Outcome)
}

// New creates a new [Pinger] with the given options.
//
// An empty account list is allowed; running it does nothing. Defaults:
//   - Workers: 10
//   - Per-step timeout: 30 seconds
//   - Mailbox: INBOX
//   - Dialer: IMAP over implicit TLS
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Pinger, error) {
	cfg := &pingerConfig{
		workers: DefaultWorkers,
		timeout: DefaultTimeout,
		mailbox: DefaultMailbox,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	dialer := cfg.dialer
	if dialer == nil {
		// the dial step already runs under the per-step deadline
		dialer = NewIMAPDialer(cfg.tlsConfig, 0)
	}

	accounts := make([]Account, len(cfg.accounts))
	copy(accounts, cfg.accounts)

	return &Pinger{
		accounts:         accounts,
		workers:          cfg.workers,
		timeout:          cfg.timeout,
		mailbox:          cfg.mailbox,
		dialer:           dialer,
		logger:           logger,
		outcomeCallbacks: cfg.outcomeCallbacks,
	}, nil
}

// Run probes every account and blocks until all probes have finished.
//
// At most the configured number of workers probe at once. A failing,
// hanging or panicking account never aborts or delays the others beyond
// its own step timeout. Outcomes are logged and passed to the registered
// callbacks as they arrive; the aggregate is returned once every account
// has an outcome, so Attempted always equals the number of accounts.
//
// Cancelling ctx makes in-flight probes fail with [KindCanceled] and skips
// the ones not yet started (they are still counted as attempted).
func (p *Pinger) Run(ctx context.Context) RunResult {
	jobs := make([]poller.Job, len(p.accounts))
	for i, acct := range p.accounts {
		jobs[i] = poller.Job{
			Name: acct.String(),
			Run: func(ctx context.Context) error {
				return p.probe(ctx, acct)
			},
		}
	}

	scheduler := poller.NewScheduler(jobs, p.workers, p.logger)
	p.logger.Info("probe run starting",
		"accounts", len(p.accounts),
		"workers", scheduler.Workers(),
		"timeout", p.timeout.String(),
	)

	tally := scheduler.Run(ctx, func(r poller.Result) {
		out := newOutcome(p.accounts[r.Index], r.Err, r.Latency, r.CheckedAt)
		p.report(out)
	})

	result := RunResult{Attempted: tally.Attempted, Succeeded: tally.Succeeded}
	p.logger.Info("probe run finished",
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", result.Failed(),
	)
	return result
}

// report logs an outcome and hands it to the callbacks.
func (p *Pinger) report(out Outcome) {
	attrs := []any{
		"endpoint", out.User + "@" + out.Server,
		"latency_ms", out.Latency.Milliseconds(),
	}
	if out.Success() {
		p.logger.Debug("probe succeeded", attrs...)
	} else {
		p.logger.Warn("probe failed", append(attrs, "kind", out.Kind.String(), "error", out.Reason())...)
	}

	for _, cb := range p.outcomeCallbacks {
		invokeCallbackSafe(cb, out, p.logger)
	}
}

// Accounts returns a copy of the configured accounts.
func (p *Pinger) Accounts() []Account {
	cp := make([]Account, len(p.accounts))
	copy(cp, p.accounts)
	return cp
}

// Workers returns the configured maximum number of concurrent probes.
func (p *Pinger) Workers() int {
	return p.workers
}

// Timeout returns the per-step timeout.
func (p *Pinger) Timeout() time.Duration {
	return p.timeout
}

// Mailbox returns the mailbox examined by each probe.
func (p *Pinger) Mailbox() string {
	return p.mailbox
}

// invokeCallbackSafe calls an outcome callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Outcome), out Outcome, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("outcome callback panicked",
				"panic", r,
				"endpoint", out.User+"@"+out.Server,
			)
		}
	}()
	cb(out)
}
