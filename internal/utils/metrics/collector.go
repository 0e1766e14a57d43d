// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricType names a metric held by the collector.
type MetricType string

const (
	EvaluationCounterType   MetricType = "evaluation_counter"
	EvaluationDurationType  MetricType = "evaluation_duration"
	AlertCounterType        MetricType = "alert_counter"
	DeliveryFailureType     MetricType = "delivery_failures"
	ProviderLatencyType     MetricType = "provider_latency"
	PositionValueType       MetricType = "position_value"
	SnapshotPersistFailType MetricType = "snapshot_persist_failures"
)

const namespace = "lp_monitor"

// Collector owns a private registry so several monitors (and tests) can
// coexist in one process.
type Collector struct {
	metrics  sync.Map
	registry *prometheus.Registry

	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	alerts             *prometheus.CounterVec
	deliveryFailures   *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
	positionValue      *prometheus.GaugeVec
	persistFailures    *prometheus.CounterVec
}

// NewCollector creates a collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	c.evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of position evaluations by result",
		},
		[]string{"result"},
	)
	c.evaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of one evaluation cycle in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"result"},
	)
	c.alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Total number of alerts triggered by kind",
		},
		[]string{"kind"},
	)
	c.deliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Total number of failed notification deliveries",
		},
		[]string{"kind"},
	)
	c.providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Indexer request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "status"},
	)
	c.positionValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_value_usd",
			Help:      "Current USD value of a position including fees",
		},
		[]string{"position_id"},
	)
	c.persistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_persist_failures_total",
			Help:      "Total number of snapshots that could not be stored",
		},
		[]string{"reason"},
	)

	metricsMap := map[MetricType]prometheus.Collector{
		EvaluationCounterType:   c.evaluations,
		EvaluationDurationType:  c.evaluationDuration,
		AlertCounterType:        c.alerts,
		DeliveryFailureType:     c.deliveryFailures,
		ProviderLatencyType:     c.providerLatency,
		PositionValueType:       c.positionValue,
		SnapshotPersistFailType: c.persistFailures,
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the HTTP handler serving the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Reset clears all metric values.
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

// RecordEvaluation records the outcome of one evaluation cycle.
func (c *Collector) RecordEvaluation(result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.evaluations.WithLabelValues(result).Inc()
	c.evaluationDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordAlert counts a triggered alert.
func (c *Collector) RecordAlert(kind string) {
	if c == nil {
		return
	}
	c.alerts.WithLabelValues(kind).Inc()
}

// RecordDeliveryFailure counts a failed notification.
func (c *Collector) RecordDeliveryFailure(kind string) {
	if c == nil {
		return
	}
	c.deliveryFailures.WithLabelValues(kind).Inc()
}

// RecordProviderLatency records an indexer request.
func (c *Collector) RecordProviderLatency(method, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.providerLatency.WithLabelValues(method, status).Observe(duration.Seconds())
}

// UpdatePositionValue sets the latest USD value of a position.
func (c *Collector) UpdatePositionValue(positionID string, valueUSD float64) {
	if c == nil {
		return
	}
	c.positionValue.WithLabelValues(positionID).Set(valueUSD)
}

// RecordPersistFailure counts a snapshot that could not be appended.
func (c *Collector) RecordPersistFailure(reason string) {
	if c == nil {
		return
	}
	c.persistFailures.WithLabelValues(reason).Inc()
}
