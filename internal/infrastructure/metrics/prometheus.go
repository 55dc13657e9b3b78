package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports metrics to Prometheus format.
// It also serves as the grant cache observer and the resolver's decision observer.
type PrometheusExporter struct {
	collector *Collector

	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheHitRate     prometheus.Gauge
	cacheKeys        prometheus.Gauge
	cacheMemoryBytes prometheus.Gauge
	cacheEvictions   prometheus.Gauge
	cacheExpired     prometheus.Gauge
	decisions        *prometheus.CounterVec
	grpcRequests     *prometheus.CounterVec
	grpcDuration     *prometheus.HistogramVec
	grpcErrors       *prometheus.CounterVec
}

// NewPrometheusExporter creates a new Prometheus exporter registered on reg.
// A nil reg uses the default registerer.
func NewPrometheusExporter(collector *Collector, reg prometheus.Registerer) *PrometheusExporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusExporter{
		collector: collector,
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "skillperm_grant_cache_hits_total",
			Help: "Total number of grant cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "skillperm_grant_cache_misses_total",
			Help: "Total number of grant cache misses",
		}),
		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skillperm_grant_cache_hit_rate",
			Help: "Current grant cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skillperm_grant_cache_keys_current",
			Help: "Current number of keys in the grant cache",
		}),
		cacheMemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skillperm_grant_cache_memory_bytes",
			Help: "Approximate memory usage of the grant cache in bytes",
		}),
		cacheEvictions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skillperm_grant_cache_evictions",
			Help: "Number of grant cache evictions due to memory limits since start",
		}),
		cacheExpired: factory.NewGauge(prometheus.GaugeOpts{
			Name: "skillperm_grant_cache_expirations",
			Help: "Number of grant cache entries dropped after their TTL since start",
		}),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillperm_authorization_decisions_total",
				Help: "Total number of authorization decisions by action and result",
			},
			[]string{"action", "allowed"},
		),
		grpcRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillperm_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method"},
		),
		grpcDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skillperm_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"method"},
		),
		grpcErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillperm_grpc_errors_total",
				Help: "Total number of gRPC errors by status code",
			},
			[]string{"method", "code"},
		),
	}
}

// Update refreshes gauges from the collector.
// Counters are updated as events happen, so only gauges are set here.
func (e *PrometheusExporter) Update() {
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
	e.cacheMemoryBytes.Set(float64(cacheMetrics.MemoryBytes))
	e.cacheEvictions.Set(float64(cacheMetrics.Evictions))
	e.cacheExpired.Set(float64(cacheMetrics.Expired))
}

// RecordRequest records a request in Prometheus.
func (e *PrometheusExporter) RecordRequest(method string) {
	e.grpcRequests.WithLabelValues(method).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(method string, durationSeconds float64) {
	e.grpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordError records an error with its gRPC status code.
func (e *PrometheusExporter) RecordError(method string, code string) {
	e.grpcErrors.WithLabelValues(method, code).Inc()
}

// RecordDecision records an authorization outcome in both the collector and Prometheus.
func (e *PrometheusExporter) RecordDecision(action string, allowed bool) {
	e.collector.RecordDecision(action, allowed)
	e.decisions.WithLabelValues(action, strconv.FormatBool(allowed)).Inc()
}

// RecordCacheHit records a grant cache hit.
func (e *PrometheusExporter) RecordCacheHit() {
	e.cacheHits.Inc()
}

// RecordCacheMiss records a grant cache miss.
func (e *PrometheusExporter) RecordCacheMiss() {
	e.cacheMisses.Inc()
}
