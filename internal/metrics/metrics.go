// Package metrics exposes Prometheus collectors for ticket extraction and
// pass issuance.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"uzpass/internal/extractor"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	gatherer prometheus.Gatherer

	pages         *prometheus.CounterVec
	failures      *prometheus.CounterVec
	parseDuration *prometheus.HistogramVec
	passes        *prometheus.CounterVec
	duplicates    prometheus.Counter
}

// New registers the collectors with reg. A nil reg uses a fresh registry,
// which keeps tests independent of the global default.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		pages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uzpass_pages_total",
			Help: "Pages dispatched to ticket parsers, by source, parser and status.",
		}, []string{"source", "parser", "status"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uzpass_page_failures_total",
			Help: "Pages that produced no ticket, by error kind.",
		}, []string{"kind"}),
		parseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uzpass_page_parse_seconds",
			Help:    "Time spent dispatching one page.",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}, []string{"source"}),
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uzpass_passes_total",
			Help: "Pass issuance attempts, by status.",
		}, []string{"status"}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "uzpass_duplicate_submissions_total",
			Help: "Submissions rejected as already processed.",
		}),
	}
}

// ObserveResult records the per-page outcomes of an extraction.
func (m *Metrics) ObserveResult(res extractor.Result) {
	if m == nil {
		return
	}
	source := string(res.Source)
	for _, o := range res.Outcomes {
		status := "ok"
		if !o.OK() {
			status = "failed"
			m.failures.WithLabelValues(o.Kind).Inc()
		}
		m.pages.WithLabelValues(source, o.Parser, status).Inc()
		m.parseDuration.WithLabelValues(source).Observe(o.Duration.Seconds())
	}
}

// PassIssued records a pass issuance attempt.
func (m *Metrics) PassIssued(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.passes.WithLabelValues("failed").Inc()
		return
	}
	m.passes.WithLabelValues("ok").Inc()
}

// Duplicate records a submission rejected as already processed.
func (m *Metrics) Duplicate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
