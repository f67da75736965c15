package metrics

import (
	"github.com/newthinker/datacheck/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Availability metrics
	checksTotal     *prometheus.CounterVec
	slotsTotal      *prometheus.CounterVec
	sizeLookups     *prometheus.CounterVec
	checkDuration   *prometheus.HistogramVec
	catalogEntries  prometheus.Gauge
	notificationsTx *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacheck_checks_total",
			Help: "Total number of availability checks run",
		},
		[]string{"mode"},
	)
	r.slotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacheck_slots_total",
			Help: "Total number of requested timestamps classified, by status",
		},
		[]string{"status"},
	)
	r.sizeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacheck_size_lookups_total",
			Help: "Total number of file size lookups",
		},
		[]string{"result"},
	)
	r.checkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datacheck_check_duration_seconds",
			Help:    "Availability check duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"mode"},
	)
	r.catalogEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datacheck_catalog_entries",
			Help: "Number of entries in the most recently loaded catalog",
		},
	)
	r.notificationsTx = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacheck_notifications_total",
			Help: "Total number of gap notifications sent",
		},
		[]string{"notifier", "status"},
	)

	reg.MustRegister(r.checksTotal)
	reg.MustRegister(r.slotsTotal)
	reg.MustRegister(r.sizeLookups)
	reg.MustRegister(r.checkDuration)
	reg.MustRegister(r.catalogEntries)
	reg.MustRegister(r.notificationsTx)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSizeLookup counts a file size lookup by result ("ok" or "error").
func (r *Registry) RecordSizeLookup(result string) {
	r.sizeLookups.WithLabelValues(result).Inc()
}

// RecordCheck records a completed check and the statuses it produced.
func (r *Registry) RecordCheck(mode string, statuses []core.Status, duration float64) {
	r.checksTotal.WithLabelValues(mode).Inc()
	r.checkDuration.WithLabelValues(mode).Observe(duration)
	for _, s := range statuses {
		r.slotsTotal.WithLabelValues(s.String()).Inc()
	}
}

// SetCatalogEntries sets the catalog size gauge.
func (r *Registry) SetCatalogEntries(n int) {
	r.catalogEntries.Set(float64(n))
}

// RecordNotification records a gap notification attempt.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notificationsTx.WithLabelValues(notifier, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
