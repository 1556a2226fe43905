// Package audits contains the built-in per-page audit implementations and
// the registry that assembles an enabled set from configuration.
package audits

import (
	"context"
	"fmt"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// perfProbeExpr pulls navigation and paint timings out of the page. Every
// field is optional; pages loaded from cache or exotic documents expose
// only a subset.
const perfProbeExpr = `(() => {
	const out = {};
	const nav = performance.getEntriesByType('navigation')[0];
	if (nav) {
		out.ttfb = nav.responseStart;
		out.dcl = nav.domContentLoadedEventEnd;
	}
	for (const e of performance.getEntriesByType('paint')) {
		if (e.name === 'first-contentful-paint') out.fcp = e.startTime;
	}
	const lcp = performance.getEntriesByType('largest-contentful-paint');
	if (lcp.length > 0) out.lcp = lcp[lcp.length - 1].startTime;
	return out;
})()`

type perfProbe struct {
	TTFB *float64 `json:"ttfb"`
	FCP  *float64 `json:"fcp"`
	LCP  *float64 `json:"lcp"`
	DCL  *float64 `json:"dcl"`
}

// perfBudget holds per-metric ceilings in milliseconds.
type perfBudget struct {
	TTFB float64
	FCP  float64
	LCP  float64
	DCL  float64
}

var budgets = map[string]perfBudget{
	"strict":  {TTFB: 400, FCP: 1200, LCP: 1800, DCL: 1500},
	"default": {TTFB: 800, FCP: 1800, LCP: 2500, DCL: 2500},
	"relaxed": {TTFB: 1500, FCP: 3000, LCP: 4000, DCL: 4000},
}

// Perf measures page load timing against a named performance budget.
type Perf struct {
	budgetName string
	budget     perfBudget
}

// NewPerf builds the performance audit for the named budget.
func NewPerf(budgetName string) (*Perf, error) {
	if budgetName == "" {
		budgetName = "default"
	}
	budget, ok := budgets[budgetName]
	if !ok {
		return nil, fmt.Errorf("unknown performance budget %q", budgetName)
	}
	return &Perf{budgetName: budgetName, budget: budget}, nil
}

// Name implements audit.Audit.
func (a *Perf) Name() string { return "perf" }

// Run probes the page's timing entries and scores them against the budget.
// Each metric over its ceiling costs 25 points and records an issue; a
// metric the page did not expose is skipped, not penalized.
func (a *Perf) Run(ctx context.Context, page *audit.Context) error {
	var probe perfProbe
	if err := page.Page.Eval(ctx, perfProbeExpr, &probe); err != nil {
		return fmt.Errorf("probe timing entries: %w", err)
	}

	res := &audit.PerfMetrics{
		TTFBMs:             probe.TTFB,
		FCPMs:              probe.FCP,
		LCPMs:              probe.LCP,
		DOMContentLoadedMs: probe.DCL,
		Budget:             a.budgetName,
		Score:              100,
	}
	check := func(value *float64, ceiling float64, issue string) {
		if value == nil || *value <= ceiling {
			return
		}
		res.Score -= 25
		res.OverBudget = append(res.OverBudget, issue)
	}
	check(probe.TTFB, a.budget.TTFB, "ttfb_over_budget")
	check(probe.FCP, a.budget.FCP, "fcp_over_budget")
	check(probe.LCP, a.budget.LCP, "lcp_over_budget")
	check(probe.DCL, a.budget.DCL, "dom_content_loaded_over_budget")
	if res.Score < 0 {
		res.Score = 0
	}

	page.Perf = res
	return nil
}
