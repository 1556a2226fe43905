// Package api exposes the service over HTTP: run management, summaries,
// health, Prometheus metrics, and the WebSocket event bridge GUI clients
// attach to.
package api

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/artifact"
)

// Run states surfaced by the API.
const (
	StateRunning  = "running"
	StateComplete = "complete"
	StateFailed   = "failed"
)

// StartFunc executes one full audit run synchronously and returns its
// summary. The serve command supplies the implementation that assembles
// queue, pool, and writer per run.
type StartFunc func(ctx context.Context, runID string, urls []string) (artifact.Summary, error)

// RunStatus is the externally visible state of one run.
type RunStatus struct {
	RunID   string            `json:"runId"`
	State   string            `json:"state"`
	Error   string            `json:"error,omitempty"`
	Summary *artifact.Summary `json:"summary,omitempty"`
}

// Runs tracks launched runs for the lifetime of the process. Pending work
// does not survive a restart; a restarted service starts with an empty
// table.
type Runs struct {
	newID  func() string
	start  StartFunc
	logger *zap.Logger

	mu     sync.Mutex
	status map[string]*RunStatus
}

// NewRuns builds the run table.
func NewRuns(newID func() string, start StartFunc, logger *zap.Logger) (*Runs, error) {
	if newID == nil {
		return nil, errors.New("api: id generator is required")
	}
	if start == nil {
		return nil, errors.New("api: start func is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runs{
		newID:  newID,
		start:  start,
		logger: logger,
		status: make(map[string]*RunStatus),
	}, nil
}

// Launch registers a run and executes it in the background, returning the
// run ID immediately.
func (r *Runs) Launch(ctx context.Context, urls []string) (string, error) {
	if len(urls) == 0 {
		return "", errors.New("no urls to audit")
	}
	runID := r.newID()
	r.mu.Lock()
	r.status[runID] = &RunStatus{RunID: runID, State: StateRunning}
	r.mu.Unlock()

	go func() {
		summary, err := r.start(ctx, runID, urls)
		r.mu.Lock()
		defer r.mu.Unlock()
		st := r.status[runID]
		if err != nil {
			st.State = StateFailed
			st.Error = err.Error()
			r.logger.Error("run failed", zap.String("run_id", runID), zap.Error(err))
			return
		}
		st.State = StateComplete
		st.Summary = &summary
	}()
	return runID, nil
}

// Get returns a copy of the run's status.
func (r *Runs) Get(runID string) (RunStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.status[runID]
	if !ok {
		return RunStatus{}, false
	}
	return *st, true
}
