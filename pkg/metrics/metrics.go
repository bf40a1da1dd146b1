package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds metrics configuration
type Config struct {
	Namespace string
	Service   string
}

// DefaultConfig returns the default metrics configuration
func DefaultConfig(service string) *Config {
	return &Config{
		Namespace: "commerce",
		Service:   service,
	}
}

// Metrics owns the Prometheus registry and all instruments for the service
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	ledgerEntriesTotal    *prometheus.CounterVec
	stockRejectionsTotal  *prometheus.CounterVec
	lockWaitDuration      prometheus.Histogram
	lowStockRecords       prometheus.Gauge
	outboxPendingEvents   prometheus.Gauge
	eventsPublishedTotal  *prometheus.CounterVec
	projectionRefreshLags prometheus.Histogram
}

// New creates a Metrics instance with its own registry
func New(cfg *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": cfg.Service}

	m := &Metrics{
		registry: registry,

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "http_requests_total",
			Help:        "Total HTTP requests by method, path and status.",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),

		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency.",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),

		httpRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "HTTP requests currently being served.",
			ConstLabels: constLabels,
		}),

		ledgerEntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "ledger_entries_total",
			Help:        "Ledger entries recorded, by transaction kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),

		stockRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "stock_rejections_total",
			Help:        "Rejected stock operations, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),

		lockWaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "record_lock_wait_seconds",
			Help:        "Time spent waiting for a stock record lock.",
			ConstLabels: constLabels,
			Buckets:     []float64{.0001, .001, .01, .05, .1, .5, 1, 3, 5},
		}),

		lowStockRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "low_stock_records",
			Help:        "Stock records at or below their reorder point.",
			ConstLabels: constLabels,
		}),

		outboxPendingEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "outbox_pending_events",
			Help:        "Outbox events awaiting publication.",
			ConstLabels: constLabels,
		}),

		eventsPublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "events_published_total",
			Help:        "Domain events published to the broker, by outcome.",
			ConstLabels: constLabels,
		}, []string{"status"}),

		projectionRefreshLags: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "projection_refresh_seconds",
			Help:        "Stock summary projection refresh latency.",
			ConstLabels: constLabels,
			Buckets:     []float64{.001, .005, .01, .05, .1, .5, 1},
		}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.ledgerEntriesTotal,
		m.stockRejectionsTotal,
		m.lockWaitDuration,
		m.lowStockRecords,
		m.outboxPendingEvents,
		m.eventsPublishedTotal,
		m.projectionRefreshLags,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight bumps the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight lowers the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordLedgerEntry records a committed ledger entry
func (m *Metrics) RecordLedgerEntry(kind string) {
	m.ledgerEntriesTotal.WithLabelValues(kind).Inc()
}

// RecordStockRejection records a rejected operation by reason
func (m *Metrics) RecordStockRejection(reason string) {
	m.stockRejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveLockWait records time spent acquiring a record lock
func (m *Metrics) ObserveLockWait(d time.Duration) {
	m.lockWaitDuration.Observe(d.Seconds())
}

// SetLowStockRecords sets the low-stock gauge
func (m *Metrics) SetLowStockRecords(n float64) {
	m.lowStockRecords.Set(n)
}

// SetOutboxPending sets the outbox backlog gauge
func (m *Metrics) SetOutboxPending(n float64) {
	m.outboxPendingEvents.Set(n)
}

// RecordEventPublished records a publish attempt outcome ("success"/"failure")
func (m *Metrics) RecordEventPublished(status string) {
	m.eventsPublishedTotal.WithLabelValues(status).Inc()
}

// ObserveProjectionRefresh records a projection refresh duration
func (m *Metrics) ObserveProjectionRefresh(d time.Duration) {
	m.projectionRefreshLags.Observe(d.Seconds())
}
