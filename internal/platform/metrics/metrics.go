package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	MessagesProcessed *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram

	AuthorizationDenials prometheus.Counter
	ConsentDenials       prometheus.Counter

	// AuditAppendFailures is the operational alert for a failed audit write.
	// A failure to audit a SUCCESS never converts the pipeline result into a
	// failure; it surfaces here instead.
	AuditAppendFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_messages_processed_total",
			Help: "Messages processed by the transformation pipeline, by outcome",
		}, []string{"outcome"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_pipeline_duration_seconds",
			Help:    "End-to-end duration of one pipeline run",
			Buckets: prometheus.DefBuckets,
		}),
		AuthorizationDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_authorization_denials_total",
			Help: "Authorization decisions that denied the caller",
		}),
		ConsentDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_consent_denials_total",
			Help: "Pipeline runs rejected for missing or invalid consent",
		}),
		AuditAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_audit_append_failures_total",
			Help: "Audit events that could not be appended to the store",
		}),
	}
}
