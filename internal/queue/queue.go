// Package queue orchestrates an audit run: it fans queued URLs out to a
// fixed set of workers, borrows pages from the browser pool, probes for
// redirects, runs the audit pipeline with retry, and persists one artifact
// per queued URL.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/artifact"
	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
	"github.com/casoon/auditmysite-studio-sub002/internal/browser"
	"github.com/casoon/auditmysite-studio-sub002/internal/config"
	"github.com/casoon/auditmysite-studio-sub002/internal/events"
	"github.com/casoon/auditmysite-studio-sub002/internal/redirect"
)

// pagePool is the slice of the browser pool the queue needs. Tests
// substitute fakes that never open a real browser.
type pagePool interface {
	Acquire(ctx context.Context) (browser.Page, error)
	Release(page browser.Page)
}

// redirectProbe is the detection seam. The production implementation is
// redirect.Detector.
type redirectProbe interface {
	Detect(ctx context.Context, page browser.Page, rawURL string) *redirect.Info
}

// Options wires a Queue. Pool, Writer, and Emitter are required; the rest
// degrade to no-ops when absent.
type Options struct {
	RunID     string
	Config    config.Config
	Pool      pagePool
	Detector  redirectProbe
	Stats     *redirect.Statistics
	Writer    *artifact.Writer
	Audits    []audit.Audit
	Emitter   events.Emitter
	Throttle  *Throttle
	Footprint FootprintFunc
	Logger    *zap.Logger
}

// Queue distributes queued URLs across workers via a shared cursor, so the
// work-stealing is implicit: each worker claims the next unclaimed index
// until the list is exhausted.
type Queue struct {
	runID     string
	cfg       config.Config
	pool      pagePool
	detector  redirectProbe
	stats     *redirect.Statistics
	writer    *artifact.Writer
	audits    []audit.Audit
	emitter   events.Emitter
	throttle  *Throttle
	footprint FootprintFunc
	logger    *zap.Logger

	// sleep is a seam so backoff tests observe requested delays instead of
	// waiting them out.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewQueue validates opts and builds the orchestrator.
func NewQueue(opts Options) (*Queue, error) {
	if opts.RunID == "" {
		return nil, errors.New("queue: run id is required")
	}
	if opts.Pool == nil {
		return nil, errors.New("queue: browser pool is required")
	}
	if opts.Writer == nil {
		return nil, errors.New("queue: artifact writer is required")
	}
	if opts.Emitter == nil {
		return nil, errors.New("queue: event emitter is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	footprint := opts.Footprint
	if footprint == nil {
		footprint = ProcessRSS
	}
	return &Queue{
		runID:     opts.RunID,
		cfg:       opts.Config,
		pool:      opts.Pool,
		detector:  opts.Detector,
		stats:     opts.Stats,
		writer:    opts.Writer,
		audits:    opts.Audits,
		emitter:   opts.Emitter,
		throttle:  opts.Throttle,
		footprint: footprint,
		logger:    logger,
		sleep:     sleepCtx,
	}, nil
}

// Process audits every URL in order of claim and writes the run summary
// once after all workers drain. The returned error reflects summary
// persistence only; per-page failures are captured in their artifacts.
func (q *Queue) Process(ctx context.Context, urls []string) (artifact.Summary, error) {
	for _, u := range urls {
		q.emit(events.Event{Kind: events.KindPageQueued, URL: u})
	}

	workers := q.cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := cursor.Add(1) - 1
				if idx >= int64(len(urls)) {
					return
				}
				if ctx.Err() != nil {
					q.abandon(urls[idx])
					continue
				}
				q.processURL(ctx, urls[idx])
			}
		}()
	}
	wg.Wait()

	extra := map[string]any{}
	if q.stats != nil {
		extra["redirectStats"] = q.stats.Snapshot()
	}
	summary, err := q.writer.WriteSummary(extra)
	if err != nil {
		return summary, fmt.Errorf("write run summary: %w", err)
	}
	q.logger.Info("run complete",
		zap.String("run_id", q.runID),
		zap.Int("pages", summary.Pages.Total),
		zap.Int("success_rate", summary.SuccessRate))
	return summary, nil
}

// abandon records a URL the run was cancelled before reaching. Every queued
// URL still yields exactly one artifact.
func (q *Queue) abandon(rawURL string) {
	now := time.Now().UTC()
	res := audit.FailureResult(q.runID, rawURL, "run cancelled", now, now)
	if err := q.writer.Write(res); err != nil {
		q.logger.Warn("write cancelled-page artifact", zap.String("url", rawURL), zap.Error(err))
	}
	q.emit(events.Event{Kind: events.KindPageStarted, URL: rawURL})
	q.emit(events.Event{Kind: events.KindPageSkipped, URL: rawURL, Reason: "run cancelled"})
}

// processURL drives one URL through probe, audit, and retry until success
// or exhaustion. The redirect probe runs once; audit attempts retry with
// exponential backoff and re-acquire a page when the handle was dropped.
func (q *Queue) processURL(ctx context.Context, rawURL string) {
	started := time.Now().UTC()
	q.emit(events.Event{Kind: events.KindPageStarted, URL: rawURL})

	var (
		page    browser.Page
		probed  bool
		target  = rawURL
		lastErr error
	)
	defer func() {
		if page != nil {
			q.pool.Release(page)
		}
	}()

	attempts := q.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := q.backoff(attempt - 1)
			q.emit(events.Event{Kind: events.KindPageRetry, URL: rawURL, Attempt: attempt - 1, DelayMs: delay.Milliseconds()})
			if err := q.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}
		if page == nil {
			p, err := q.pool.Acquire(ctx)
			if err != nil {
				lastErr = fmt.Errorf("acquire page: %w", err)
				if errors.Is(err, browser.ErrPoolClosed) || ctx.Err() != nil {
					break
				}
				continue
			}
			page = p
		}
		if !probed {
			probed = true
			var handled bool
			target, handled = q.probeRedirect(ctx, page, rawURL)
			if handled {
				return
			}
		}
		res, err := q.attempt(ctx, page, rawURL, target, started)
		if err == nil {
			q.finish(res, rawURL, started)
			return
		}
		lastErr = err
		q.logger.Debug("page attempt failed",
			zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))
		// The failed attempt may have corrupted the handle. Drop it and
		// re-acquire on the next attempt.
		q.pool.Release(page)
		page = nil
		if ctx.Err() != nil {
			break
		}
	}

	finished := time.Now().UTC()
	errText := "page audit failed"
	if lastErr != nil {
		errText = lastErr.Error()
	}
	res := audit.FailureResult(q.runID, target, errText, started, finished)
	if err := q.writer.Write(res); err != nil {
		q.logger.Warn("write failure artifact", zap.String("url", rawURL), zap.Error(err))
	}
	q.emit(events.Event{
		Kind:    events.KindPageError,
		URL:     rawURL,
		Message: errText,
		DurMs:   finished.Sub(started).Milliseconds(),
	})
}

// probeRedirect detects where rawURL really lands and applies the redirect
// policy. The second return reports that the page is fully handled (skip
// policy records the redirect and writes no artifact); otherwise the
// returned target is what the audit attempts should navigate to.
func (q *Queue) probeRedirect(ctx context.Context, page browser.Page, rawURL string) (string, bool) {
	if q.detector == nil {
		return rawURL, false
	}
	if err := q.throttle.Wait(ctx); err != nil {
		return rawURL, false
	}
	info := q.detector.Detect(ctx, page, rawURL)
	if info == nil {
		return rawURL, false
	}
	if q.stats != nil {
		q.stats.Record(*info)
	}
	q.emit(events.Event{
		Kind:         events.KindPageRedirected,
		URL:          rawURL,
		FinalURL:     info.FinalURL,
		RedirectType: string(info.Type),
		Status:       info.StatusCode,
	})
	if q.cfg.RedirectPolicy == config.RedirectSkip {
		q.emit(events.Event{Kind: events.KindPageSkipped, URL: rawURL, Reason: "redirected"})
		return rawURL, true
	}
	if info.FinalURL != "" {
		return info.FinalURL, false
	}
	return rawURL, false
}

// attempt performs one full audit pass: throttled navigation, HTTP capture,
// DOM snapshot, then every enabled audit behind the failure isolation
// wrapper. Audit failures land in the artifact; only navigation and
// throttling errors fail the attempt. The context and its artifact belong
// to the resolved target, while lifecycle events stay keyed to the queued
// rawURL.
func (q *Queue) attempt(ctx context.Context, page browser.Page, rawURL, target string, started time.Time) (audit.PageResult, error) {
	if err := q.throttle.Wait(ctx); err != nil {
		return audit.PageResult{}, fmt.Errorf("throttle: %w", err)
	}
	attemptStart := time.Now()

	navCtx, cancel := context.WithTimeout(ctx, q.navTimeout())
	err := page.Navigate(navCtx, target)
	cancel()
	if err != nil {
		return audit.PageResult{}, fmt.Errorf("navigate %s: %w", target, err)
	}

	actx := audit.NewContext(q.runID, target, page, started)
	actx.HTTP = q.httpInfo(ctx, page, target)
	if html, err := page.HTML(ctx); err == nil {
		actx.SetHTML(html)
	} else {
		q.logger.Debug("dom snapshot failed", zap.String("url", rawURL), zap.Error(err))
	}

	for _, a := range q.audits {
		q.emit(events.Event{Kind: events.KindAuditAttached, URL: rawURL, Audit: a.Name()})
		auditStart := time.Now()
		_ = audit.NewSafe(a).Run(ctx, actx)
		q.emit(events.Event{
			Kind:  events.KindAuditFinished,
			URL:   rawURL,
			Audit: a.Name(),
			DurMs: time.Since(auditStart).Milliseconds(),
		})
	}

	actx.Footprint = &audit.EngineFootprint{
		TaskDurationMs: time.Since(attemptStart).Milliseconds(),
		PeakRSSBytes:   q.footprint(),
	}
	return actx.BuildResult(time.Now().UTC()), nil
}

// httpInfo derives the navigation outcome from the page's observed
// responses: the last non-3xx response is the terminal document response,
// and a location differing from the audited URL is recorded as the final
// URL (a redirect the probe did not resolve).
func (q *Queue) httpInfo(ctx context.Context, page browser.Page, audited string) *audit.HTTPInfo {
	info := &audit.HTTPInfo{}
	if loc, err := page.Location(ctx); err == nil && loc != "" && loc != "about:blank" && loc != audited {
		info.FinalURL = loc
	}
	responses := page.Responses()
	for i := len(responses) - 1; i >= 0; i-- {
		r := responses[i]
		if r.Status >= 300 && r.Status < 400 {
			continue
		}
		info.StatusCode = r.Status
		info.ContentType = r.Headers.Get("Content-Type")
		return info
	}
	// The chain never terminated; report the last hop rather than nothing.
	if len(responses) > 0 {
		info.StatusCode = responses[len(responses)-1].Status
	}
	return info
}

func (q *Queue) finish(res audit.PageResult, eventURL string, started time.Time) {
	if err := q.writer.Write(res); err != nil {
		q.logger.Warn("write page artifact", zap.String("url", res.URL), zap.Error(err))
	}
	status := 0
	if res.HTTP != nil {
		status = res.HTTP.StatusCode
	}
	q.emit(events.Event{
		Kind:   events.KindPageFinished,
		URL:    eventURL,
		Status: status,
		DurMs:  res.FinishedAt.Sub(started).Milliseconds(),
	})
}

// backoff returns base * 2^(retry-1) for the 1-based retry number.
func (q *Queue) backoff(retry int) time.Duration {
	base := q.cfg.RetryBaseDelay
	if base <= 0 {
		base = time.Second
	}
	if retry < 1 {
		retry = 1
	}
	return base * time.Duration(1<<(retry-1))
}

func (q *Queue) navTimeout() time.Duration {
	if q.cfg.BrowserNavTimeout > 0 {
		return q.cfg.BrowserNavTimeout
	}
	return 10 * time.Second
}

func (q *Queue) emit(evt events.Event) {
	evt.RunID = q.runID
	evt.TS = time.Now().UTC()
	q.emitter.Emit(evt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
