package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dennisdiepolder/salesboard/internal/normalize"
)

const namespace = "salesboard"

// Metrics holds all application metrics
type Metrics struct {
	registry *prometheus.Registry

	// CRM fetch metrics
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram

	// Normalization metrics
	recordsNormalized prometheus.Counter
	anomaliesTotal    *prometheus.CounterVec

	// Snapshot metrics
	snapshotRecords prometheus.Gauge
	snapshotColumns prometheus.Gauge
	lastRefresh     prometheus.Gauge

	// WebSocket metrics
	wsConnectionsTotal prometheus.Counter
	wsActive           prometheus.Gauge

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates a metrics set on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crm_fetches_total",
			Help:      "CRM task fetches by result",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crm_fetch_duration_seconds",
			Help:      "Duration of CRM task fetches",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		recordsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_normalized_total",
			Help:      "Task records normalized",
		}),
		anomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalization_anomalies_total",
			Help:      "Per-record anomalies absorbed during normalization",
		}, []string{"kind"}),
		snapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Records in the current snapshot",
		}),
		snapshotColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_additional_columns",
			Help:      "Additional-field columns in the current snapshot",
		}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_last_refresh_timestamp_seconds",
			Help:      "Unix time of the last snapshot refresh",
		}),
		wsConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_connections_total",
			Help:      "WebSocket connections accepted",
		}),
		wsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_active_connections",
			Help:      "Currently connected WebSocket clients",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.fetchesTotal,
		m.fetchDuration,
		m.recordsNormalized,
		m.anomaliesTotal,
		m.snapshotRecords,
		m.snapshotColumns,
		m.lastRefresh,
		m.wsConnectionsTotal,
		m.wsActive,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

// RecordFetch records one CRM fetch
func (m *Metrics) RecordFetch(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.fetchesTotal.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(duration.Seconds())
}

// RecordNormalization records the outcome of one normalization pass
func (m *Metrics) RecordNormalization(report normalize.Report) {
	m.recordsNormalized.Add(float64(report.Records))

	anomalies := map[string]int{
		"malformed_date":            report.MalformedDates,
		"missing_date":              report.MissingDates,
		"malformed_conversion_code": report.MalformedConversionCodes,
		"unknown_status_code":       report.UnknownStatusCodes,
		"unknown_conversion_code":   report.UnknownConversionCodes,
		"duplicate_field_name":      report.DuplicateFieldNames,
		"shadowed_field":            report.ShadowedFields,
		"skipped_record":            report.SkippedRecords,
	}
	for kind, n := range anomalies {
		if n > 0 {
			m.anomaliesTotal.WithLabelValues(kind).Add(float64(n))
		}
	}
}

// UpdateSnapshot records the size of the snapshot now being served
func (m *Metrics) UpdateSnapshot(records, columns int, at time.Time) {
	m.snapshotRecords.Set(float64(records))
	m.snapshotColumns.Set(float64(columns))
	m.lastRefresh.Set(float64(at.Unix()))
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.wsConnectionsTotal.Inc()
	m.wsActive.Inc()
}

// RecordWebSocketDisconnect decrements the active connection gauge
func (m *Metrics) RecordWebSocketDisconnect() {
	m.wsActive.Dec()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(route string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
