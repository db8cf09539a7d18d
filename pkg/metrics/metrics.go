// Package metrics provides Prometheus instrumentation for backend requests
// and file transfers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for requests
const (
	OutcomeOK       = "ok"
	OutcomeBusiness = "business_error"
	OutcomeAuth     = "auth_error"
	OutcomeNetwork  = "network_error"
)

// Transfer directions
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Metrics holds the client collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transferBytes   *prometheus.CounterVec
	refreshesTotal  prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greenbox_requests_total",
				Help: "Total number of backend requests",
			},
			[]string{"endpoint", "outcome"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "greenbox_request_duration_seconds",
				Help:    "Backend request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		transferBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "greenbox_transfer_bytes_total",
				Help: "Total bytes uploaded or downloaded",
			},
			[]string{"direction"},
		),
		refreshesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "greenbox_refreshes_total",
				Help: "Total number of listing and tree refreshes",
			},
		),
	}

	m.registry.MustRegister(m.requestsTotal, m.requestDuration, m.transferBytes, m.refreshesTotal)
	return m
}

// Registry exposes the registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Register additionally registers the collectors on reg, e.g. a process-wide
// registry served over HTTP
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration, m.transferBytes, m.refreshesTotal} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordRequest records one completed backend request
func (m *Metrics) RecordRequest(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordTransfer adds transferred bytes for a direction
func (m *Metrics) RecordTransfer(direction string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.transferBytes.WithLabelValues(direction).Add(float64(bytes))
}

// RecordRefresh counts a listing refresh
func (m *Metrics) RecordRefresh() {
	if m == nil {
		return
	}
	m.refreshesTotal.Inc()
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
