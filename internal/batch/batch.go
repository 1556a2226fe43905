// Package batch runs independent jobs through a channel-fed worker pool
// with bounded retry. It is the alternate execution path for callers that
// hold a job list up front and want one terminal result per job, kept
// separate from the shared-cursor audit queue.
package batch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Job is one unit of work identified by ID.
type Job struct {
	ID  string
	URL string

	attempt int
}

// Attempt returns the 1-based attempt number the job is on.
func (j Job) Attempt() int {
	if j.attempt == 0 {
		return 1
	}
	return j.attempt
}

// Result is the terminal outcome of one job. Err is nil on success and
// carries the last attempt's failure otherwise.
type Result struct {
	Job      Job
	Attempts int
	Err      error
}

// Handler processes one job attempt.
type Handler func(ctx context.Context, job Job) error

// Runner executes jobs across a fixed worker set, re-enqueueing failed
// jobs up to MaxRetries before emitting a terminal failure result.
type Runner struct {
	workers    int
	maxRetries int
	handler    Handler
	logger     *zap.Logger
}

// NewRunner builds a Runner. workers < 1 is clamped to 1 and negative
// retry budgets to 0.
func NewRunner(workers, maxRetries int, handler Handler, logger *zap.Logger) (*Runner, error) {
	if handler == nil {
		return nil, errors.New("batch: handler is required")
	}
	if workers < 1 {
		workers = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{workers: workers, maxRetries: maxRetries, handler: handler, logger: logger}, nil
}

// Run processes every job and returns exactly one Result per job, in
// completion order. The job channel is sized for the worst-case retry
// fan-out so re-enqueueing never blocks a worker.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Result {
	if len(jobs) == 0 {
		return nil
	}
	jobCh := make(chan Job, len(jobs)*(r.maxRetries+1))
	resCh := make(chan Result, len(jobs))
	for _, job := range jobs {
		job.attempt = 1
		jobCh <- job
	}

	workers := r.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				err := r.handler(ctx, job)
				if err != nil && job.attempt <= r.maxRetries && ctx.Err() == nil {
					r.logger.Debug("re-enqueueing failed job",
						zap.String("job_id", job.ID), zap.Int("attempt", job.attempt), zap.Error(err))
					job.attempt++
					jobCh <- job
					continue
				}
				resCh <- Result{Job: job, Attempts: job.attempt, Err: err}
			}
		}()
	}

	results := make([]Result, 0, len(jobs))
	for range jobs {
		results = append(results, <-resCh)
	}
	close(jobCh)
	wg.Wait()
	return results
}
