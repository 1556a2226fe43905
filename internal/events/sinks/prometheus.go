package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/casoon/auditmysite-studio-sub002/internal/events"
)

// PrometheusSink exports audit progress metrics via Prometheus. It owns all
// collectors for page outcomes, retries, and per-audit runtimes.
type PrometheusSink struct {
	pagesQueued   prometheus.Counter
	pagesDone     *prometheus.CounterVec
	pagesRetried  prometheus.Counter
	pagesInFlight prometheus.Gauge
	pageDuration  prometheus.Histogram
	auditDuration *prometheus.HistogramVec
	redirects     *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		pagesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_pages_queued_total",
			Help: "Total pages claimed by workers.",
		}),
		pagesDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_pages_completed_total",
			Help: "Total pages completed partitioned by result.",
		}, []string{"result"}),
		pagesRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_page_retries_total",
			Help: "Total page attempt retries.",
		}),
		pagesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audit_pages_in_flight",
			Help: "Pages currently being audited.",
		}),
		pageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "audit_page_duration_seconds",
			Help:    "Wall time per finished page.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90, 180},
		}),
		auditDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audit_step_duration_seconds",
			Help:    "Wall time per individual audit step.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"audit"}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_redirects_total",
			Help: "Detected redirects partitioned by type.",
		}, []string{"type"}),
	}
	for _, collector := range []prometheus.Collector{
		s.pagesQueued,
		s.pagesDone,
		s.pagesRetried,
		s.pagesInFlight,
		s.pageDuration,
		s.auditDuration,
		s.redirects,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register audit collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors for the event. It is safe for
// concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, evt events.Event) error {
	switch evt.Kind {
	case events.KindPageQueued:
		s.pagesQueued.Inc()
	case events.KindPageStarted:
		s.pagesInFlight.Inc()
	case events.KindPageFinished:
		s.pagesInFlight.Dec()
		s.pagesDone.WithLabelValues("success").Inc()
		if evt.DurMs > 0 {
			s.pageDuration.Observe(float64(evt.DurMs) / 1000)
		}
	case events.KindPageError:
		s.pagesInFlight.Dec()
		s.pagesDone.WithLabelValues("error").Inc()
	case events.KindPageSkipped:
		s.pagesInFlight.Dec()
		s.pagesDone.WithLabelValues("skipped").Inc()
	case events.KindPageRetry:
		s.pagesRetried.Inc()
	case events.KindPageRedirected:
		s.redirects.WithLabelValues(evt.RedirectType).Inc()
	case events.KindAuditFinished:
		if evt.DurMs > 0 {
			s.auditDuration.WithLabelValues(evt.Audit).Observe(float64(evt.DurMs) / 1000)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
