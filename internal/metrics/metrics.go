// Package metrics records verification workflow counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status labels shared by the workflow counters.
const (
	StatusAccepted        = "accepted"
	StatusDiscarded       = "discarded"
	StatusInvalid         = "invalid"
	StatusError           = "error"
	StatusVerified        = "verified"
	StatusAlreadyVerified = "already_verified"
	StatusMissing         = "missing"
	StatusSent            = "sent"
	StatusFailed          = "failed"
	StatusSkipped         = "skipped"
)

// Recorder records workflow outcomes. Kind is the subject kind ("lead", "subscription").
type Recorder interface {
	RecordSubmission(kind, status string)
	RecordRedemption(kind, status string)
	RecordNotification(event, status string)
}

// PrometheusRecorder implements Recorder on a dedicated registry.
type PrometheusRecorder struct {
	registry      *prometheus.Registry
	submissions   *prometheus.CounterVec
	redemptions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewPrometheusRecorder registers the workflow counters under namespace.
func NewPrometheusRecorder(namespace string) *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &PrometheusRecorder{
		registry: registry,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Contact and newsletter submissions by kind and outcome.",
		}, []string{"kind", "status"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Verification token redemptions by kind and outcome.",
		}, []string{"kind", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Best-effort notifications by event and outcome.",
		}, []string{"event", "status"}),
	}
	registry.MustRegister(r.submissions, r.redemptions, r.notifications)
	return r
}

func (r *PrometheusRecorder) RecordSubmission(kind, status string) {
	r.submissions.WithLabelValues(kind, status).Inc()
}

func (r *PrometheusRecorder) RecordRedemption(kind, status string) {
	r.redemptions.WithLabelValues(kind, status).Inc()
}

func (r *PrometheusRecorder) RecordNotification(event, status string) {
	r.notifications.WithLabelValues(event, status).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// NoOp discards everything.
type NoOp struct{}

func (NoOp) RecordSubmission(kind, status string)    {}
func (NoOp) RecordRedemption(kind, status string)    {}
func (NoOp) RecordNotification(event, status string) {}
