package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulse/app/internal/alerts"
	"pulse/app/internal/models"
)

const namespace = "pulse"

// Metrics holds the Prometheus collectors of the monitor.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	probes        *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	endpointUp    *prometheus.GaugeVec
	alerts        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	refreshes     prometheus.Counter
	refreshHits   prometheus.Counter
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probes performed, by endpoint and resulting status.",
		}, []string{"endpoint", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_latency_seconds",
			Help:      "Measured probe latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		endpointUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_status",
			Help:      "Latest status per endpoint: 1 up, 0.5 warning, 0 down.",
		}, []string{"endpoint"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts emitted, by endpoint and severity.",
		}, []string{"endpoint", "severity"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries, by sink and result.",
		}, []string{"sink", "result"}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_requests_total",
			Help:      "Force refresh requests.",
		}),
		refreshHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_deliveries_total",
			Help:      "Endpoint loops woken by force refresh.",
		}),
	}
	m.registry.MustRegister(
		m.probes, m.latency, m.endpointUp, m.alerts, m.notifications, m.refreshes, m.refreshHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSample records one probe result
func (m *Metrics) ObserveSample(endpoint string, s models.Sample) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(endpoint, string(s.Status)).Inc()
	if s.Latency != nil {
		m.latency.WithLabelValues(endpoint).Observe(s.Latency.Seconds())
	}
	m.endpointUp.WithLabelValues(endpoint).Set(statusValue(s.Status))
}

// ObserveAlert records an emitted alert
func (m *Metrics) ObserveAlert(a alerts.Alert) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(a.Endpoint, string(a.Severity)).Inc()
}

// ObserveNotification records a sink delivery outcome
func (m *Metrics) ObserveNotification(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(sink, result).Inc()
}

// ObserveRefresh records a force refresh and how many loops it reached
func (m *Metrics) ObserveRefresh(delivered int) {
	if m == nil {
		return
	}
	m.refreshes.Inc()
	m.refreshHits.Add(float64(delivered))
}

func statusValue(s models.Status) float64 {
	switch s {
	case models.StatusUp:
		return 1
	case models.StatusWarning:
		return 0.5
	}
	return 0
}
