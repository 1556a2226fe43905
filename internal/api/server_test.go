package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/artifact"
)

func testRuns(t *testing.T, start StartFunc) *Runs {
	t.Helper()
	var seq atomic.Int64
	runs, err := NewRuns(
		func() string { return fmt.Sprintf("run-%d", seq.Add(1)) },
		start,
		zap.NewNop(),
	)
	require.NoError(t, err)
	return runs
}

func okStart(_ context.Context, runID string, urls []string) (artifact.Summary, error) {
	n := len(urls)
	return artifact.Summary{
		RunID: runID,
		Pages: artifact.PageCounts{Total: n, Successful: n},
	}, nil
}

func testServer(t *testing.T, runs *Runs) *Server {
	t.Helper()
	return NewServer(ServerConfig{Addr: ":0", Runs: runs, Logger: zap.NewNop()})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := testServer(t, testRuns(t, okStart))
	rec := doRequest(s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartRunAccepted(t *testing.T) {
	runs := testRuns(t, okStart)
	s := testServer(t, runs)

	rec := doRequest(s, http.MethodPost, "/v1/runs", `{"urls":["https://a.test/","https://a.test/b"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	runID := body["runId"]
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		st, ok := runs.Get(runID)
		return ok && st.State == StateComplete
	}, time.Second, 10*time.Millisecond)

	st, _ := runs.Get(runID)
	require.NotNil(t, st.Summary)
	assert.Equal(t, 2, st.Summary.Pages.Total)
}

func TestStartRunRejectsEmptyBody(t *testing.T) {
	s := testServer(t, testRuns(t, okStart))
	rec := doRequest(s, http.MethodPost, "/v1/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRunRejectsInvalidJSON(t *testing.T) {
	s := testServer(t, testRuns(t, okStart))
	rec := doRequest(s, http.MethodPost, "/v1/runs", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSummaryNotFound(t *testing.T) {
	s := testServer(t, testRuns(t, okStart))
	rec := doRequest(s, http.MethodGet, "/v1/runs/nope/summary", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunSummaryReportsState(t *testing.T) {
	runs := testRuns(t, okStart)
	s := testServer(t, runs)

	runID, err := runs.Launch(context.Background(), []string{"https://a.test/"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, _ := runs.Get(runID)
		return st.State == StateComplete
	}, time.Second, 10*time.Millisecond)

	rec := doRequest(s, http.MethodGet, "/v1/runs/"+runID+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, StateComplete, st.State)
	require.NotNil(t, st.Summary)
}

func TestFailedRunSurfacesError(t *testing.T) {
	runs := testRuns(t, func(context.Context, string, []string) (artifact.Summary, error) {
		return artifact.Summary{}, errors.New("browser exploded")
	})
	runID, err := runs.Launch(context.Background(), []string{"https://a.test/"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, _ := runs.Get(runID)
		return st.State == StateFailed
	}, time.Second, 10*time.Millisecond)

	st, _ := runs.Get(runID)
	assert.Equal(t, "browser exploded", st.Error)
}

func TestLaunchRejectsEmptyURLList(t *testing.T) {
	runs := testRuns(t, okStart)
	_, err := runs.Launch(context.Background(), nil)
	assert.Error(t, err)
}
