// Package report exports the outcome of one probe run in the Prometheus
// text exposition format.
//
// The snapshot is meant for cron-driven runs: node_exporter's textfile
// collector picks the file up and serves it. Each run overwrites the
// previous file; nothing is accumulated across runs.
package report

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpalmerr/mailpinger"
)

const namespace = "mailpinger"

// Snapshot collects the outcomes of a single run.
//
// Observe is safe for concurrent use, although [mailpinger.Pinger] only
// delivers outcomes from one goroutine.
type Snapshot struct {
	reg *prometheus.Registry

	mUp        *prometheus.GaugeVec
	mDuration  *prometheus.GaugeVec
	mFailures  *prometheus.GaugeVec
	mAttempted prometheus.Gauge
	mSucceeded prometheus.Gauge
	mLastRun   prometheus.Gauge
}

// NewSnapshot returns an empty snapshot backed by its own registry.
func NewSnapshot() *Snapshot {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Snapshot{
		reg: reg,
		mUp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "account_up",
			Help: "1 if the last probe of the account succeeded, 0 otherwise",
		}, []string{"server", "user"}),
		mDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "account_probe_duration_seconds",
			Help: "Wall time of the last probe of the account",
		}, []string{"server", "user"}),
		mFailures: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_failures",
			Help: "Failed probes in the last run by failure kind",
		}, []string{"kind"}),
		mAttempted: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_attempted",
			Help: "Accounts attempted in the last run",
		}),
		mSucceeded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_succeeded",
			Help: "Accounts probed successfully in the last run",
		}),
		mLastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_last_timestamp_seconds",
			Help: "Unix time at which the last run finished",
		}),
	}
}

// Observe records one account outcome. Pass it to
// [mailpinger.WithOutcomeCallback].
func (s *Snapshot) Observe(out mailpinger.Outcome) {
	up := 0.0
	if out.Success() {
		up = 1
	} else {
		s.mFailures.WithLabelValues(out.Kind.String()).Inc()
	}
	s.mUp.WithLabelValues(out.Server, out.User).Set(up)
	s.mDuration.WithLabelValues(out.Server, out.User).Set(out.Latency.Seconds())
}

// Finish records the run totals.
func (s *Snapshot) Finish(res mailpinger.RunResult, at time.Time) {
	s.mAttempted.Set(float64(res.Attempted))
	s.mSucceeded.Set(float64(res.Succeeded))
	s.mLastRun.Set(float64(at.UnixNano()) / 1e9)
}

// Gatherer exposes the underlying registry, e.g. for tests or for serving.
func (s *Snapshot) Gatherer() prometheus.Gatherer {
	return s.reg
}

// WriteFile atomically replaces path with the snapshot in text format.
func (s *Snapshot) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.reg); err != nil {
		return fmt.Errorf("writing metrics snapshot: %w", err)
	}
	return nil
}
