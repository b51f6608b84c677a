package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Job is a single unit of work dispatched to the worker pool.
//
// Run returns nil when the job succeeded. Any error, including a recovered
// panic, marks the job as failed without affecting the other jobs.
type Job struct {
	// Name identifies the job in logs (e.g. "user@server").
	Name string

	// Run performs the work. It must honour ctx.
	Run func(ctx context.Context) error
}

// Result holds the outcome of running a single [Job].
type Result struct {
	// Index is the position of the job in the slice given to [NewScheduler].
	Index int

	// Name is the job's name.
	Name string

	// Err is nil on success.
	Err error

	// Latency is the time spent inside Job.Run.
	Latency time.Duration

	// CheckedAt is when the job started.
	CheckedAt time.Time
}

// Tally is the aggregate of one [Scheduler.Run].
type Tally struct {
	Attempted int
	Succeeded int
}

// Scheduler runs a fixed list of jobs once across a bounded worker pool.
//
// Scheduler implements a worker pool pattern: at most maxConcurrency jobs
// run at the same time, every job yields exactly one [Result], and
// [Scheduler.Run] returns only after all of them have been recorded.
//
// Counting is done with atomics by the workers; results are handed to the
// caller's callback from a single collector goroutine, so the callback
// never runs concurrently with itself.
type Scheduler struct {
	jobs           []Job
	maxConcurrency int
	logger         *slog.Logger
}

// NewScheduler creates a new [Scheduler].
//
// Parameters:
//   - jobs: Jobs to run; the slice is not modified
//   - maxConcurrency: Maximum number of jobs in flight; values below 1 are treated as 1
//   - logger: Logger for scheduler events (panic recovery, etc.)
func NewScheduler(jobs []Job, maxConcurrency int, logger *slog.Logger) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:           jobs,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Workers returns the number of workers a run will start: the configured
// concurrency, capped by the number of jobs.
func (s *Scheduler) Workers() int {
	return min(s.maxConcurrency, len(s.jobs))
}

// Run executes every job and blocks until all have finished.
//
// onResult, if non-nil, is called once per job from a single goroutine.
// A panicking callback is recovered and logged. A slow callback delays later
// deliveries and the return of Run, but never the start of remaining jobs.
//
// If ctx is cancelled, jobs that have not started yet are not run; they are
// still recorded, with ctx.Err() as their error, so Attempted always equals
// the number of jobs.
func (s *Scheduler) Run(ctx context.Context, onResult func(Result)) Tally {
	if len(s.jobs) == 0 {
		return Tally{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var attempted, succeeded atomic.Int64

	workers := s.Workers()
	indices := make(chan int)
	// one slot per job so workers never wait on the collector
	results := make(chan Result, len(s.jobs))

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for r := range results {
			if onResult != nil {
				s.deliverSafe(onResult, r)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indices {
				r := s.runJob(ctx, idx)
				attempted.Add(1)
				if r.Err == nil {
					succeeded.Add(1)
				}
				results <- r
			}
		}()
	}

	// every index is dispatched even after cancellation; runJob short-circuits
	for idx := range s.jobs {
		indices <- idx
	}
	close(indices)

	wg.Wait()
	close(results)
	<-collectorDone

	return Tally{
		Attempted: int(attempted.Load()),
		Succeeded: int(succeeded.Load()),
	}
}

// runJob runs one job with panic recovery.
func (s *Scheduler) runJob(ctx context.Context, idx int) Result {
	job := s.jobs[idx]
	result := Result{
		Index:     idx,
		Name:      job.Name,
		CheckedAt: time.Now(),
	}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	result.Err = s.safeRun(ctx, job)
	result.Latency = time.Since(result.CheckedAt)
	return result
}

// safeRun calls job.Run with panic recovery.
// If the job panics, it logs the full stack trace with a correlation ID
// and returns an error containing the ID.
func (s *Scheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			s.logger.Error("job panic",
				"correlation_id", correlationID,
				"job", job.Name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			err = fmt.Errorf("job panic (correlation_id: %s)", correlationID)
		}
	}()
	if job.Run == nil {
		return fmt.Errorf("job %q has no Run function", job.Name)
	}
	return job.Run(ctx)
}

// deliverSafe calls the result callback with panic recovery.
// Panics are logged but do not propagate.
func (s *Scheduler) deliverSafe(cb func(Result), r Result) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("result callback panicked",
				"panic", p,
				"job", r.Name,
			)
		}
	}()
	cb(r)
}
