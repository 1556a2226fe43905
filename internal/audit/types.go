// Package audit defines the per-page audit context, the result document
// schema, and the audit capability contract.
package audit

import (
	"time"

	"github.com/casoon/auditmysite-studio-sub002/internal/browser"
)

// SchemaVersion of the per-page artifact document.
const SchemaVersion = 2

// HTTPInfo captures the navigation outcome for the audited URL.
type HTTPInfo struct {
	StatusCode  int    `json:"statusCode"`
	FinalURL    string `json:"finalUrl,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// EngineFootprint is an immutable snapshot of the resource cost of one
// page-audit attempt, attached at the end of a successful attempt.
type EngineFootprint struct {
	TaskDurationMs int64 `json:"taskDurationMs"`
	PeakRSSBytes   int64 `json:"peakRssBytes"`
}

// PerfMetrics holds browser timing metrics in milliseconds. Pointers mark
// metrics the page did not expose; aggregation skips them.
type PerfMetrics struct {
	TTFBMs             *float64         `json:"ttfbMs,omitempty"`
	FCPMs              *float64         `json:"fcpMs,omitempty"`
	LCPMs              *float64         `json:"lcpMs,omitempty"`
	DOMContentLoadedMs *float64         `json:"domContentLoadedMs,omitempty"`
	Score              int              `json:"score"`
	Budget             string           `json:"budget,omitempty"`
	OverBudget         []string         `json:"overBudget,omitempty"`
	Engine             *EngineFootprint `json:"engine,omitempty"`
}

// SEOResult is the seo audit's result blob.
type SEOResult struct {
	Score           int      `json:"score"`
	Title           string   `json:"title"`
	TitleLength     int      `json:"titleLength"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	Canonical       string   `json:"canonical,omitempty"`
	H1Count         int      `json:"h1Count"`
	RobotsNoindex   bool     `json:"robotsNoindex"`
	Issues          []string `json:"issues,omitempty"`
}

// Violation is one accessibility finding, tagged with an impact severity.
type Violation struct {
	Rule        string `json:"rule"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
	Nodes       int    `json:"nodes"`
}

// A11yResult is the accessibility audit's result blob.
type A11yResult struct {
	Violations []Violation `json:"violations"`
}

// LinkStats splits page links by destination host.
type LinkStats struct {
	Internal int `json:"internal"`
	External int `json:"external"`
}

// ContentResult is the content audit's result blob.
type ContentResult struct {
	WordCount int            `json:"wordCount"`
	Headings  map[string]int `json:"headings"`
	Links     LinkStats      `json:"links"`
}

// MobileResult is the mobile-friendliness audit's result blob.
type MobileResult struct {
	Score              int      `json:"score"`
	HasViewport        bool     `json:"hasViewport"`
	FixedWidthViewport bool     `json:"fixedWidthViewport"`
	SmallFontNodes     int      `json:"smallFontNodes"`
	Issues             []string `json:"issues,omitempty"`
}

// Context is the shared state for one page-audit attempt. It is owned
// exclusively by the worker processing the URL and mutated only by the
// audit pipeline; it is never shared across concurrent pages and never
// read after its result has been serialized.
type Context struct {
	RunID     string
	URL       string
	Page      browser.Page
	StartedAt time.Time

	HTTP           *HTTPInfo
	Perf           *PerfMetrics
	SEO            *SEOResult
	Accessibility  *A11yResult
	Content        *ContentResult
	Mobile         *MobileResult
	ConsoleErrors  []string
	ScreenshotPath string
	Footprint      *EngineFootprint

	// AuditErrors records per-audit failures without aborting siblings.
	AuditErrors map[string]string

	// html caches the serialized DOM so DOM-scraping audits share one
	// snapshot instead of re-serializing per audit.
	html string
}

// NewContext creates the context for one attempt against url.
func NewContext(runID, url string, page browser.Page, startedAt time.Time) *Context {
	return &Context{
		RunID:       runID,
		URL:         url,
		Page:        page,
		StartedAt:   startedAt,
		AuditErrors: make(map[string]string),
	}
}

// SetHTML caches the DOM snapshot for DOM-scraping audits.
func (c *Context) SetHTML(html string) {
	c.html = html
}

// HTML returns the cached DOM snapshot, which may be empty if navigation
// never completed.
func (c *Context) HTML() string {
	return c.html
}

// RecordAuditError notes that the named audit failed.
func (c *Context) RecordAuditError(name, message string) {
	c.AuditErrors[name] = message
}

// PageResult is the per-page artifact document.
type PageResult struct {
	SchemaVersion  int               `json:"schemaVersion"`
	RunID          string            `json:"runId"`
	URL            string            `json:"url"`
	HTTP           *HTTPInfo         `json:"http,omitempty"`
	Perf           *PerfMetrics      `json:"perf,omitempty"`
	SEO            *SEOResult        `json:"seo,omitempty"`
	Accessibility  *A11yResult       `json:"accessibility,omitempty"`
	Content        *ContentResult    `json:"content,omitempty"`
	Mobile         *MobileResult     `json:"mobile,omitempty"`
	ConsoleErrors  []string          `json:"consoleErrors,omitempty"`
	ScreenshotPath string            `json:"screenshotPath,omitempty"`
	AuditErrors    map[string]string `json:"auditErrors,omitempty"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"startedAt"`
	FinishedAt     time.Time         `json:"finishedAt"`
}

// BuildResult serializes the context into its artifact document. The
// context must not be used afterwards.
func (c *Context) BuildResult(finishedAt time.Time) PageResult {
	res := PageResult{
		SchemaVersion:  SchemaVersion,
		RunID:          c.RunID,
		URL:            c.URL,
		HTTP:           c.HTTP,
		Perf:           c.Perf,
		SEO:            c.SEO,
		Accessibility:  c.Accessibility,
		Content:        c.Content,
		Mobile:         c.Mobile,
		ConsoleErrors:  c.ConsoleErrors,
		ScreenshotPath: c.ScreenshotPath,
		StartedAt:      c.StartedAt,
		FinishedAt:     finishedAt,
	}
	if len(c.AuditErrors) > 0 {
		res.AuditErrors = c.AuditErrors
	}
	if c.Footprint != nil {
		if res.Perf == nil {
			res.Perf = &PerfMetrics{}
		}
		res.Perf.Engine = c.Footprint
	}
	return res
}

// FailureResult synthesizes the minimal artifact written when every attempt
// for a URL failed, so each queued URL still yields exactly one document.
func FailureResult(runID, url, errText string, startedAt, finishedAt time.Time) PageResult {
	return PageResult{
		SchemaVersion: SchemaVersion,
		RunID:         runID,
		URL:           url,
		Error:         errText,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
	}
}
