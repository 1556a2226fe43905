// Package store persists run history to Postgres. It is optional: without
// a configured DSN nothing here is constructed and runs leave no rows
// behind.
package store

import (
	"context"
	"time"
)

// RunHistory records run lifecycles and per-page outcomes.
type RunHistory interface {
	// StartRun inserts the run row when processing begins.
	StartRun(ctx context.Context, runID string, queued int, startedAt time.Time) error
	// RecordPage appends one terminal page outcome.
	RecordPage(ctx context.Context, page PageRecord) error
	// CompleteRun finalizes the run row with aggregate counts.
	CompleteRun(ctx context.Context, run RunRecord) error
	// Close releases the underlying connections.
	Close(ctx context.Context) error
}

// PageRecord is one terminal page outcome row.
type PageRecord struct {
	RunID      string
	URL        string
	Outcome    string
	StatusCode int
	DurationMs int64
	Message    string
	FinishedAt time.Time
}

// RunRecord finalizes a run row.
type RunRecord struct {
	RunID       string
	Total       int
	Successful  int
	Errors      int
	SuccessRate int
	FinishedAt  time.Time
}
