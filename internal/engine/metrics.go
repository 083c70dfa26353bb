package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/stanza/internal/governor"
	"github.com/roach88/stanza/internal/pipeline"
)

const metricsNamespace = "stanza"

// Outcome labels.
const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

// Metrics counts run-loop activity. A nil *Metrics records nothing.
type Metrics struct {
	items       *prometheus.CounterVec
	limitTrips  *prometheus.CounterVec
	duration    prometheus.Histogram
	hookErrors  prometheus.Counter
	stageErrors *prometheus.CounterVec
}

// NewMetrics registers the run-loop collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "items_total",
			Help:      "The total number of items processed, by outcome.",
		}, []string{"outcome"}),
		limitTrips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "limit_trips_total",
			Help:      "The total number of items stopped by a resource limit or interrupt.",
		}, []string{"kind"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "item_duration_seconds",
			Help:      "Time spent on one item, from pull to teardown.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		hookErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "finally_errors_total",
			Help:      "The total number of Finally hook errors swallowed after a successful item.",
		}),
		stageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stage_failures_total",
			Help:      "The total number of item failures, by failing stage.",
		}, []string{"stage"}),
	}
}

func (m *Metrics) observeItem(d time.Duration, failure *pipeline.Failure) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
	if failure == nil {
		m.items.WithLabelValues(outcomeOK).Inc()
		return
	}
	m.items.WithLabelValues(outcomeFailed).Inc()
	if le, ok := governor.AsLimitError(failure); ok {
		m.limitTrips.WithLabelValues(string(le.Kind)).Inc()
		return
	}
	m.stageErrors.WithLabelValues(failure.Stage).Inc()
}

func (m *Metrics) observeHookError() {
	if m == nil {
		return
	}
	m.hookErrors.Inc()
}
