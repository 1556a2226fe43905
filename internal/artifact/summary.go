package artifact

import (
	"math"
	"sort"
	"time"

	"github.com/casoon/auditmysite-studio-sub002/internal/audit"
)

// SummarySchemaVersion of the run summary document.
const SummarySchemaVersion = 2

// StatBlock describes the distribution of one numeric metric across the
// pages that reported it. A metric nobody reported yields Count 0 and nil
// aggregates rather than an error.
type StatBlock struct {
	Count  int      `json:"count"`
	Avg    *float64 `json:"avg"`
	Median *float64 `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

// RedirectCounts partitions 3xx pages by status.
type RedirectCounts struct {
	Total    int `json:"total"`
	Moved301 int `json:"301"`
	Found302 int `json:"302"`
	Other    int `json:"other"`
}

// PageCounts partitions processed pages by HTTP outcome class. A redirect
// status is not an error: it reflects a successful navigation to an
// audited destination.
type PageCounts struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Redirects  RedirectCounts `json:"redirects"`
	Errors     int            `json:"errors"`
	Crashed    int            `json:"crashed"`
}

// A11ySummary aggregates accessibility findings across pages.
type A11ySummary struct {
	TotalViolations    int            `json:"totalViolations"`
	ViolationsByImpact map[string]int `json:"violationsByImpact"`
}

// Summary is the aggregated run document, built exactly once at the end of
// a run by folding over every written page result.
type Summary struct {
	SchemaVersion int                       `json:"schemaVersion"`
	RunID         string                    `json:"runId"`
	Date          string                    `json:"date"`
	Pages         PageCounts                `json:"pages"`
	SuccessRate   int                       `json:"successRate"`
	Metrics       map[string]StatBlock      `json:"metrics"`
	Accessibility A11ySummary               `json:"accessibility"`
	Scores        map[string]map[string]int `json:"scores"`
	Issues        map[string]int            `json:"issues"`
	URLs          []string                  `json:"urls"`
}

/// Aggregate folds the page results into the run summary. Pure function:
// tolerant of partial data, a page missing a field simply does not
// contribute to that field's statistic.
func Aggregate(runID string, now time.Time, results []audit.PageResult) Summary {
	s := Summary{
		SchemaVersion: SummarySchemaVersion,
		RunID:         runID,
		Date:          now.Format("2006-01-02"),
		Metrics:       make(map[string]StatBlock),
		Accessibility: A11ySummary{ViolationsByImpact: make(map[string]int)},
		Scores: map[string]map[string]int{
			"performance": emptyGrades(),
			"seo":         emptyGrades(),
			"mobile":      emptyGrades(),
		},
		Issues: make(map[string]int),
		URLs:   make([]string, 0, len(results)),
	}

	metricValues := map[string][]float64{
		"ttfbMs":             nil,
		"fcpMs":              nil,
		"lcpMs":              nil,
		"domContentLoadedMs": nil,
		"taskDurationMs":     nil,
		"peakRssBytes":       nil,
	}

	for _, res := range results {
		s.Pages.Total++
		s.URLs = append(s.URLs, res.URL)
		countStatus(&s.Pages, res.HTTP)

		if perf := res.Perf; perf != nil {
			appendMetric(metricValues, "ttfbMs", perf.TTFBMs)
			appendMetric(metricValues, "fcpMs", perf.FCPMs)
			appendMetric(metricValues, "lcpMs", perf.LCPMs)
			appendMetric(metricValues, "domContentLoadedMs", perf.DOMContentLoadedMs)
			if perf.Engine != nil {
				metricValues["taskDurationMs"] = append(metricValues["taskDurationMs"], float64(perf.Engine.TaskDurationMs))
				metricValues["peakRssBytes"] = append(metricValues["peakRssBytes"], float64(perf.Engine.PeakRSSBytes))
			}
			if perf.TTFBMs != nil || perf.FCPMs != nil || perf.LCPMs != nil {
				s.Scores["performance"][grade(perf.Score)]++
			}
			for _, issue := range perf.OverBudget {
				s.Issues[issue]++
			}
		}
		if seo := res.SEO; seo != nil {
			s.Scores["seo"][grade(seo.Score)]++
			for _, issue := range seo.Issues {
				s.Issues[issue]++
			}
		}
		if mobile := res.Mobile; mobile != nil {
			s.Scores["mobile"][grade(mobile.Score)]++
			for _, issue := range mobile.Issues {
				s.Issues[issue]++
			}
		}
		if a11y := res.Accessibility; a11y != nil {
			for _, v := range a11y.Violations {
				s.Accessibility.TotalViolations += v.Nodes
				s.Accessibility.ViolationsByImpact[v.Impact] += v.Nodes
			}
		}
	}

	for name, values := range metricValues {
		s.Metrics[name] = stats(values)
	}
	if s.Pages.Total > 0 {
		ok := s.Pages.Successful + s.Pages.Redirects.Total
		s.SuccessRate = int(math.Round(float64(ok) / float64(s.Pages.Total) * 100))
	}
	return s
}

func countStatus(pages *PageCounts, http *audit.HTTPInfo) {
	if http == nil || http.StatusCode == 0 {
		pages.Crashed++
		return
	}
	switch code := http.StatusCode; {
	case code >= 200 && code < 300:
		pages.Successful++
	case code >= 300 && code < 400:
		pages.Redirects.Total++
		switch code {
		case 301:
			pages.Redirects.Moved301++
		case 302:
			pages.Redirects.Found302++
		default:
			pages.Redirects.Other++
		}
	default:
		pages.Errors++
	}
}

func appendMetric(values map[string][]float64, name string, v *float64) {
	if v == nil {
		return
	}
	values[name] = append(values[name], *v)
}

// stats computes count/avg/median/min/max. The median of an even-sized set
// is the average of the two middle elements.
func stats(values []float64) StatBlock {
	if len(values) == 0 {
		return StatBlock{Count: 0}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	avg := math.Round(sum / float64(len(sorted)))

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}
	minV := sorted[0]
	maxV := sorted[len(sorted)-1]
	return StatBlock{
		Count:  len(sorted),
		Avg:    &avg,
		Median: &median,
		Min:    &minV,
		Max:    &maxV,
	}
}

func grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func emptyGrades() map[string]int {
	return map[string]int{"A": 0, "B": 0, "C": 0, "D": 0, "F": 0}
}
