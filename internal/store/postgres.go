package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	insertRunSQL = `
		INSERT INTO audit_runs (run_id, queued, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO NOTHING`

	insertPageSQL = `
		INSERT INTO audit_pages (run_id, url, outcome, status_code, duration_ms, message, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	completeRunSQL = `
		UPDATE audit_runs
		SET total = $2, successful = $3, errors = $4, success_rate = $5, finished_at = $6
		WHERE run_id = $1`
)

// execer is the slice of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres implements RunHistory on a pgx connection pool.
type Postgres struct {
	db     execer
	closer func()
	logger *zap.Logger
}

// Connect opens and pings a pool for dsn and wraps it in a Postgres store.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgres(pool, pool.Close, logger), nil
}

// NewPostgres wraps an existing pool-like handle. closer may be nil.
func NewPostgres(db execer, closer func(), logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, closer: closer, logger: logger}
}

// StartRun implements RunHistory.
func (s *Postgres) StartRun(ctx context.Context, runID string, queued int, startedAt time.Time) error {
	if _, err := s.db.Exec(ctx, insertRunSQL, runID, queued, startedAt); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// RecordPage implements RunHistory.
func (s *Postgres) RecordPage(ctx context.Context, page PageRecord) error {
	_, err := s.db.Exec(ctx, insertPageSQL,
		page.RunID, page.URL, page.Outcome, page.StatusCode,
		page.DurationMs, page.Message, page.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert page outcome %s: %w", page.URL, err)
	}
	return nil
}

// CompleteRun implements RunHistory.
func (s *Postgres) CompleteRun(ctx context.Context, run RunRecord) error {
	_, err := s.db.Exec(ctx, completeRunSQL,
		run.RunID, run.Total, run.Successful, run.Errors, run.SuccessRate, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", run.RunID, err)
	}
	return nil
}

// Close implements RunHistory.
func (s *Postgres) Close(context.Context) error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
