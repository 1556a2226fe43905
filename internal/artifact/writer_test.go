package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestWriter(t *testing.T, now time.Time) *Writer {
	t.Helper()
	w, err := NewWriter(t.TempDir(), "run-1", fixedClock{now: now}, zap.NewNop())
	require.NoError(t, err)
	return w
}

func TestWriterSameDayOverwrite(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	w := newTestWriter(t, now)

	first := audit.PageResult{RunID: "run-1", URL: "https://w.test/page", Error: "first"}
	second := audit.PageResult{RunID: "run-1", URL: "https://w.test/page", Error: "second"}
	require.NoError(t, w.Write(first))
	require.NoError(t, w.Write(second))

	entries, err := os.ReadDir(filepath.Join(w.Dir(), "pages"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "same day and URL must collapse to one file")

	raw, err := os.ReadFile(filepath.Join(w.Dir(), "pages", entries[0].Name()))
	require.NoError(t, err)
	var got audit.PageResult
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "second", got.Error)

	// Both writes still count toward aggregation.
	assert.Len(t, w.Results(), 2)
}

func TestWriterDistinctURLsDistinctFiles(t *testing.T) {
	w := newTestWriter(t, time.Now().UTC())
	require.NoError(t, w.Write(audit.PageResult{RunID: "run-1", URL: "https://w.test/a"}))
	require.NoError(t, w.Write(audit.PageResult{RunID: "run-1", URL: "https://w.test/b"}))

	entries, err := os.ReadDir(filepath.Join(w.Dir(), "pages"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWriteSummaryMergesExtra(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	w := newTestWriter(t, now)
	require.NoError(t, w.Write(audit.PageResult{
		RunID: "run-1",
		URL:   "https://w.test/",
		HTTP:  &audit.HTTPInfo{StatusCode: 200},
	}))

	summary, err := w.WriteSummary(map[string]any{
		"redirectStats": map[string]any{"total": 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pages.Total)
	assert.Equal(t, 100, summary.SuccessRate)

	raw, err := os.ReadFile(filepath.Join(w.Dir(), "summary_2026-08-25.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "redirectStats")
	assert.Contains(t, doc, "pages")
	assert.Equal(t, "run-1", doc["runId"])
}

func TestSlugDeterministicAndSafe(t *testing.T) {
	a := Slug("https://Example.com/some/path?q=1")
	b := Slug("https://Example.com/some/path?q=1")
	c := Slug("https://Example.com/some/path?q=2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "query strings must disambiguate")
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "?")
}

func TestSlugRootPath(t *testing.T) {
	assert.Contains(t, Slug("https://w.test/"), "root")
}
