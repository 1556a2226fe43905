package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/artifact"
	"github.com/casoon/auditmysite-studio-sub002/internal/audits"
	"github.com/casoon/auditmysite-studio-sub002/internal/browser"
	"github.com/casoon/auditmysite-studio-sub002/internal/clock/system"
	"github.com/casoon/auditmysite-studio-sub002/internal/config"
	"github.com/casoon/auditmysite-studio-sub002/internal/events"
	"github.com/casoon/auditmysite-studio-sub002/internal/queue"
	"github.com/casoon/auditmysite-studio-sub002/internal/redirect"
)

// executeRun assembles browser, pool, audits, and queue for one run,
// processes every URL, and tears the browser stack down again. The hub is
// shared across runs and stays open.
func executeRun(ctx context.Context, cfg config.Config, logger *zap.Logger, hub *events.Hub, runID string, urls []string) (artifact.Summary, error) {
	b, err := browser.NewBrowser(browser.Config{
		UserAgent:  cfg.BrowserUserAgent,
		NavTimeout: cfg.BrowserNavTimeout,
	}, logger)
	if err != nil {
		return artifact.Summary{}, fmt.Errorf("launch browser: %w", err)
	}
	defer b.Close()

	pool, err := browser.NewPool(browser.PoolConfig{
		Capacity:       cfg.BrowserMaxPages,
		Prewarm:        cfg.BrowserPrewarm,
		ReaperInterval: cfg.BrowserReaperInterval,
		IdleFloor:      cfg.BrowserIdleFloor,
		StaleAfter:     cfg.BrowserStaleAfter,
	}, b.NewPage, logger)
	if err != nil {
		return artifact.Summary{}, fmt.Errorf("build page pool: %w", err)
	}
	defer pool.Close()

	writer, err := artifact.NewWriter(cfg.OutputDir, runID, system.New(), logger)
	if err != nil {
		return artifact.Summary{}, err
	}

	auditSet, err := audits.Build(cfg.EnabledAudits, audits.BuildOptions{
		PerformanceBudget: cfg.PerformanceBudget,
		ScreenshotDir:     filepath.Join(writer.Dir(), "screenshots"),
		Logger:            logger,
	})
	if err != nil {
		return artifact.Summary{}, fmt.Errorf("assemble audits: %w", err)
	}

	detector := redirect.NewDetector(redirect.DetectorConfig{
		NavTimeout: cfg.BrowserNavTimeout,
		MaxHops:    cfg.MaxRedirectHops,
	}, logger)

	q, err := queue.NewQueue(queue.Options{
		RunID:    runID,
		Config:   cfg,
		Pool:     pool,
		Detector: detector,
		Stats:    redirect.NewStatistics(),
		Writer:   writer,
		Audits:   auditSet,
		Emitter:  hub,
		Throttle: queue.NewThrottle(cfg.RequestDelay, cfg.MaxRequestsPerSecond),
		Logger:   logger,
	})
	if err != nil {
		return artifact.Summary{}, err
	}
	return q.Process(ctx, urls)
}
