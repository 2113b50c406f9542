package async

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts processor transitions. A nil *Metrics records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	accepted  *prometheus.CounterVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	retried   *prometheus.CounterVec
	rejected  prometheus.Counter
	waiting   prometheus.Gauge
}

// NewMetrics registers the processor metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro", Subsystem: "dbops", Name: "jobs_accepted_total",
			Help: "Jobs accepted into the waiting sequence.",
		}, []string{"job_type"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro", Subsystem: "dbops", Name: "jobs_completed_total",
			Help: "Jobs that completed.",
		}, []string{"job_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro", Subsystem: "dbops", Name: "jobs_failed_total",
			Help: "Jobs that failed.",
		}, []string{"job_type"}),
		retried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro", Subsystem: "dbops", Name: "job_retries_total",
			Help: "Retry attempts spent.",
		}, []string{"job_type"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro", Subsystem: "dbops", Name: "descriptors_rejected_total",
			Help: "NewJob descriptors rejected as malformed or of unknown type.",
		}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "maestro", Subsystem: "dbops", Name: "jobs_waiting",
			Help: "Jobs in the waiting sequence.",
		}),
	}
	m.registry.MustRegister(m.accepted, m.completed, m.failed, m.retried, m.rejected, m.waiting)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) jobAccepted(jobType string, waiting int) {
	if m == nil {
		return
	}
	m.accepted.WithLabelValues(jobType).Inc()
	m.waiting.Set(float64(waiting))
}

func (m *Metrics) jobCompleted(jobType string, waiting int) {
	if m == nil {
		return
	}
	m.completed.WithLabelValues(jobType).Inc()
	m.waiting.Set(float64(waiting))
}

func (m *Metrics) jobFailed(jobType string, waiting int) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(jobType).Inc()
	m.waiting.Set(float64(waiting))
}

func (m *Metrics) jobRetried(jobType string) {
	if m == nil {
		return
	}
	m.retried.WithLabelValues(jobType).Inc()
}

func (m *Metrics) descriptorRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}
