package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the audit pipeline.
type Metrics struct {
	CapturesOpened   prometheus.Counter
	CaptureFailures  prometheus.Counter
	RecordsPublished prometheus.Counter
	PublishFailures  prometheus.Counter
	PublishDuration  prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CapturesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "efaudit_captures_opened_total",
			Help: "Total number of audit captures opened at save-start",
		}),
		CaptureFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "efaudit_capture_failures_total",
			Help: "Total number of saves whose audit capture aborted",
		}),
		RecordsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "efaudit_records_published_total",
			Help: "Total number of finalized audit records handed to sinks",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "efaudit_publish_failures_total",
			Help: "Total number of audit record publishes that failed",
		}),
		PublishDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "efaudit_publish_duration_seconds",
			Help:    "Time spent publishing finalized audit records",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncCapturesOpened increments the opened-captures counter by 1.
func (m *Metrics) IncCapturesOpened() {
	m.CapturesOpened.Inc()
}

// IncCaptureFailures increments the capture-failures counter by 1.
func (m *Metrics) IncCaptureFailures() {
	m.CaptureFailures.Inc()
}

// IncRecordsPublished increments the published-records counter by 1.
func (m *Metrics) IncRecordsPublished() {
	m.RecordsPublished.Inc()
}

// IncPublishFailures increments the publish-failures counter by 1.
func (m *Metrics) IncPublishFailures() {
	m.PublishFailures.Inc()
}

// ObservePublishDuration records one publish duration in seconds.
func (m *Metrics) ObservePublishDuration(seconds float64) {
	m.PublishDuration.Observe(seconds)
}
