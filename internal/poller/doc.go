// Package poller provides the bounded worker pool that fans mailpinger
// probes out across accounts.
//
// This package is internal to mailpinger. It runs a fixed list of jobs once
// with at most N in flight, isolates failures and panics per job, and
// aggregates attempted/succeeded counts without data races.
//
// The main components are:
//
//   - [Scheduler]: Runs jobs across a worker pool and returns a [Tally]
//   - [Job]: One unit of work (one account probe)
//   - [Result]: Outcome of a single job, delivered to the caller's callback
//
// Users of the mailpinger library should not need to interact with this
// package directly. Configuration is done through the main mailpinger package.
package poller
