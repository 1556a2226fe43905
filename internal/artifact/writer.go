// Package artifact persists per-page audit documents and the aggregated
// run summary.
package artifact

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// Clock supplies the calendar date used in artifact names, seamed out for
// the same-day-overwrite tests.
type Clock interface {
	Now() time.Time
}

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Writer persists one JSON document per processed page under the run
// directory and accumulates results in memory for summary aggregation.
// Artifact names are deterministic per calendar day and URL, so same-day
// re-runs overwrite instead of accumulating.
type Writer struct {
	runID  string
	dir    string
	clock  Clock
	logger *zap.Logger

	mu      sync.Mutex
	results []audit.PageResult
}

// NewWriter creates the run-scoped output directory under root.
func NewWriter(root, runID string, clock Clock, logger *zap.Logger) (*Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(filepath.Join(dir, "pages"), 0o750); err != nil {
		return nil, fmt.Errorf("create run dir %s: %w", dir, err)
	}
	return &Writer{runID: runID, dir: dir, clock: clock, logger: logger}, nil
}

// Dir returns the run-scoped output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write persists one page document and records it for aggregation. A disk
// failure is returned for logging but the result still counts toward the
// summary.
func (w *Writer) Write(res audit.PageResult) error {
	w.mu.Lock()
	w.results = append(w.results, res)
	w.mu.Unlock()

	name := fmt.Sprintf("%s_%s.json", w.clock.Now().Format("2006-01-02"), Slug(res.URL))
	target := filepath.Join(w.dir, "pages", name)
	payload, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page result: %w", err)
	}
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return fmt.Errorf("write page result %s: %w", target, err)
	}
	return nil
}

// Results returns a snapshot of the accumulated page results.
func (w *Writer) Results() []audit.PageResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]audit.PageResult(nil), w.results...)
}

// WriteSummary aggregates the accumulated results, merges caller-supplied
// extra blocks (e.g. redirect statistics), and persists one summary per
// calendar day in the run directory.
func (w *Writer) WriteSummary(extra map[string]any) (Summary, error) {
	summary := Aggregate(w.runID, w.clock.Now(), w.Results())

	doc, err := mergeExtra(summary, extra)
	if err != nil {
		return summary, err
	}
	target := filepath.Join(w.dir, fmt.Sprintf("summary_%s.json", w.clock.Now().Format("2006-01-02")))
	if err := os.WriteFile(target, doc, 0o600); err != nil {
		return summary, fmt.Errorf("write summary %s: %w", target, err)
	}
	return summary, nil
}

func mergeExtra(summary Summary, extra map[string]any) ([]byte, error) {
	base, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	if len(extra) == 0 {
		return jsonIndent(base)
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, fmt.Errorf("remarshal summary: %w", err)
	}
	for k, v := range extra {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal merged summary: %w", err)
	}
	return jsonIndent(out)
}

func jsonIndent(raw []byte) ([]byte, error) {
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("indent summary: %w", err)
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("indent summary: %w", err)
	}
	return payload, nil
}

// Slug derives a deterministic, filesystem-safe name component from a URL:
// sanitized host and path plus a short hash to disambiguate query strings.
func Slug(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return hashURL(raw)[:16]
	}
	host := invalidFilenameChars.ReplaceAllString(u.Hostname(), "_")
	p := strings.Trim(u.EscapedPath(), "/")
	if p == "" {
		p = "root"
	}
	p = invalidFilenameChars.ReplaceAllString(p, "_")
	if len(p) > 80 {
		p = p[:80]
	}
	return fmt.Sprintf("%s_%s_%s", host, p, hashURL(raw)[:16])
}

func hashURL(raw string) string {
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
