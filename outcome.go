package mailpinger

import (
	"context"
	"errors"
	"net"
	"time"
)

// Kind classifies why a probe failed.
//
// Kind is a string type so it reads naturally in structured logs.
type Kind string

const (
	// KindNone marks a successful outcome.
	KindNone Kind = ""

	// KindAddress means the server string could not be parsed.
	// No network I/O was attempted.
	KindAddress Kind = "address"

	// KindConnection covers TCP, TLS and greeting failures.
	KindConnection Kind = "connection"

	// KindAuthentication means the server rejected the credentials.
	KindAuthentication Kind = "authentication"

	// KindProtocol means an unexpected response during select, noop
	// or logout.
	KindProtocol Kind = "protocol"

	// KindTimeout means a step did not finish within the step timeout.
	KindTimeout Kind = "timeout"

	// KindCanceled means the run was cancelled before the probe finished.
	KindCanceled Kind = "canceled"

	// KindInternal means the probe itself crashed (a recovered panic).
	KindInternal Kind = "internal"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// ProbeError is the error carried by a failed [Outcome].
type ProbeError struct {
	Kind   Kind
	Server string
	User   string

	// Step names the session step that failed ("dial", "login", ...).
	Step string

	Err error
}

func (e *ProbeError) Error() string {
	msg := string(e.Kind) + " error for " + e.User + "@" + e.Server
	if e.Step != "" {
		msg += " during " + e.Step
	}
	return msg + ": " + e.Err.Error()
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Outcome is the result of probing a single [Account].
//
// A nil Err means the full connect, login, select, noop, logout cycle
// completed. Outcomes are produced once per account per run and are never
// retried.
type Outcome struct {
	// Server and User identify the probed account.
	Server string
	User   string

	// Kind is KindNone on success.
	Kind Kind

	// Err is nil on success and a *ProbeError otherwise.
	Err error

	// Latency is the wall time spent on the whole probe.
	Latency time.Duration

	// CheckedAt is when the probe started.
	CheckedAt time.Time
}

// Success reports whether the probe completed every step.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Reason returns the failure text, or "" for a successful outcome.
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// RunResult aggregates the outcomes of one [Pinger.Run].
//
// Succeeded <= Attempted <= number of configured accounts.
type RunResult struct {
	Attempted int
	Succeeded int
}

// Failed returns the number of accounts whose probe did not succeed.
func (r RunResult) Failed() int {
	return r.Attempted - r.Succeeded
}

// classify picks the failure kind for an error returned by a session step.
// Cancellation of the run and expiry of the step deadline win over the
// step's default kind: a connection torn down by a deadline often surfaces
// as a plain I/O error.
func classify(parent, step context.Context, err error, fallback Kind) Kind {
	if errors.Is(parent.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if step.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return fallback
}
