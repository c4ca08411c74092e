// Package metrics exposes the hatchery's Prometheus collectors. Every method is safe to
// call on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hatchery"

// Metrics groups the collectors recorded by the services.
type Metrics struct {
	batchesCreated     prometheus.Counter
	admissionsRejected prometheus.Counter
	transitions        *prometheus.CounterVec
	reminders          *prometheus.CounterVec
	notifyFailures     prometheus.Counter
	sweepDuration      prometheus.Histogram
	exports            *prometheus.CounterVec
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		batchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_created_total",
			Help:      "Batches admitted and stored.",
		}),
		admissionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_rejected_total",
			Help:      "Batch creations rejected by the tray capacity check.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_transitions_total",
			Help:      "Batch status changes by target status.",
		}, []string{"status"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminders produced by the monitor sweep.",
		}, []string{"kind"}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications the sink failed to deliver.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_sweep_duration_seconds",
			Help:      "Wall time of one monitor sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Batch exports by format.",
		}, []string{"format"}),
	}
	if reg != nil {
		reg.MustRegister(m.batchesCreated, m.admissionsRejected, m.transitions, m.reminders,
			m.notifyFailures, m.sweepDuration, m.exports)
	}
	return m
}

func (m *Metrics) BatchCreated() {
	if m == nil {
		return
	}
	m.batchesCreated.Inc()
}

func (m *Metrics) AdmissionRejected() {
	if m == nil {
		return
	}
	m.admissionsRejected.Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ReminderRaised(kind string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(kind).Inc()
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *Metrics) Exported(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}
