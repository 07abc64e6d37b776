// Package metrics exposes Prometheus instruments for pricing lookups and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes
const (
	OutcomeOK             = "ok"
	OutcomeNoTier         = "no_tier"
	OutcomeUnknownService = "unknown_service"
	OutcomeError          = "error"
)

// UnknownKey is the service_key label for keys outside the catalog and tier table
const UnknownKey = "unknown"

// Metrics groups the service's collectors
type Metrics struct {
	registry *prometheus.Registry

	Lookups        *prometheus.CounterVec
	LabelFallbacks *prometheus.CounterVec
	Reloads        *prometheus.CounterVec
	TierRows       prometheus.Gauge
	Quotes         prometheus.Counter
	HTTPDuration   *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matali",
			Name:      "price_lookups_total",
			Help:      "Tier lookups by service key and outcome.",
		}, []string{"service_key", "outcome"}),
		LabelFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matali",
			Name:      "label_fallbacks_total",
			Help:      "Unrecognized service labels priced against the default key.",
		}, []string{"default_key"}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matali",
			Name:      "tier_reloads_total",
			Help:      "Tier table reloads by result.",
		}, []string{"result"}),
		TierRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "matali",
			Name:      "tier_rows",
			Help:      "Rows in the active tier table.",
		}),
		Quotes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "matali",
			Name:      "quotes_created_total",
			Help:      "Quotes built and saved.",
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "matali",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLookup records a tier lookup outcome. A nil receiver is a no-op.
func (m *Metrics) ObserveLookup(serviceKey, outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(serviceKey, outcome).Inc()
}

// ObserveFallback records a label that fell back to the default key
func (m *Metrics) ObserveFallback(defaultKey string) {
	if m == nil {
		return
	}
	m.LabelFallbacks.WithLabelValues(defaultKey).Inc()
}

// ObserveReload records a reload result and the new row count
func (m *Metrics) ObserveReload(ok bool, rows int) {
	if m == nil {
		return
	}
	if !ok {
		m.Reloads.WithLabelValues("failed").Inc()
		return
	}
	m.Reloads.WithLabelValues("ok").Inc()
	m.TierRows.Set(float64(rows))
}

// ObserveQuote counts a saved quote
func (m *Metrics) ObserveQuote() {
	if m == nil {
		return
	}
	m.Quotes.Inc()
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
