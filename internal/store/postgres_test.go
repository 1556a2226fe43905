package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock, nil, zap.NewNop()), mock
}

func TestStartRun(t *testing.T) {
	s, mock := newMockStore(t)
	started := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO audit_runs").
		WithArgs("run-1", 5, started).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.StartRun(context.Background(), "run-1", 5, started))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPage(t *testing.T) {
	s, mock := newMockStore(t)
	finished := time.Now().UTC()

	mock.ExpectExec("INSERT INTO audit_pages").
		WithArgs("run-1", "https://s.test/", "finished", 200, int64(1200), "", finished).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordPage(context.Background(), PageRecord{
		RunID:      "run-1",
		URL:        "https://s.test/",
		Outcome:    "finished",
		StatusCode: 200,
		DurationMs: 1200,
		FinishedAt: finished,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRun(t *testing.T) {
	s, mock := newMockStore(t)
	finished := time.Now().UTC()

	mock.ExpectExec("UPDATE audit_runs").
		WithArgs("run-1", 10, 8, 2, 80, finished).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), RunRecord{
		RunID:       "run-1",
		Total:       10,
		Successful:  8,
		Errors:      2,
		SuccessRate: 80,
		FinishedAt:  finished,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecErrorsAreWrapped(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO audit_runs").
		WillReturnError(errors.New("connection refused"))

	err := s.StartRun(context.Background(), "run-1", 1, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-1")
}
