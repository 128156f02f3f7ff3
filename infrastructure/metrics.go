package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shiftmatch/domain"
)

// Metrics owns the prometheus registry. It implements application.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	HTTPInFlight  prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cronRuns      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shiftmatch",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftmatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shiftmatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftmatch",
			Subsystem: "applications",
			Name:      "status_transitions_total",
			Help:      "Application status changes.",
		}, []string{"from", "to"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftmatch",
			Subsystem: "notifications",
			Name:      "dispatched_total",
			Help:      "Notification deliveries by channel and outcome.",
		}, []string{"channel", "status"}),
		cronRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shiftmatch",
			Subsystem: "cron",
			Name:      "runs_total",
			Help:      "Scheduled job runs.",
		}, []string{"job", "success"}),
	}
	m.registry.MustRegister(
		m.HTTPInFlight, m.HTTPRequests, m.HTTPDuration,
		m.transitions, m.notifications, m.cronRuns,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) StatusTransition(from, to domain.ApplicationStatus) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) NotificationDispatched(channel domain.NotificationChannel, status domain.NotificationLogStatus) {
	m.notifications.WithLabelValues(string(channel), string(status)).Inc()
}

func (m *Metrics) CronRun(job string, err error) {
	success := "true"
	if err != nil {
		success = "false"
	}
	m.cronRuns.WithLabelValues(job, success).Inc()
}
