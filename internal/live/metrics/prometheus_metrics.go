package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/live/accumulator"
	"github.com/edgecomet/loadstats/internal/live/registry"
)

// SnapshotFunc returns the current registry snapshot.
type SnapshotFunc func() []registry.Row[accumulator.Stats]

// PrometheusMetrics exposes runner counters and the live statistics table.
type PrometheusMetrics struct {
	// Runner metrics
	samplesTotal     *prometheus.CounterVec
	activeWorkers    prometheus.Gauge
	snapshotDuration prometheus.Histogram
	registryKeys     prometheus.Gauge
	throughput       prometheus.Gauge
	publishesTotal   *prometheus.CounterVec

	snapshots *snapshotCollector

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics creates metrics registered with the default registry
func NewPrometheusMetrics(namespace string, source SnapshotFunc, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, source, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry creates metrics registered with registerer.
// source may be nil, in which case no per-key statistics are exported.
func NewPrometheusMetricsWithRegistry(namespace string, source SnapshotFunc, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "samples_total",
			Help:      "Total number of samples handed to the registry by result",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	pm.activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "active_workers",
			Help:      "Number of producer workers currently running",
		},
	)

	pm.snapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "snapshot_duration_seconds",
			Help:      "Time taken to read a consistent registry snapshot",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	pm.registryKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "registry_keys",
			Help:      "Number of distinct keys in the statistics registry",
		},
	)

	pm.throughput = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "current_throughput_per_second",
			Help:      "Sample rate over the last completed granularity bucket",
		},
	)

	pm.publishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "snapshot_publishes_total",
			Help:      "Snapshot publications to Redis by result",
		},
		[]string{"result"}, // result: success, failure
	)

	registerer.MustRegister(
		pm.samplesTotal,
		pm.activeWorkers,
		pm.snapshotDuration,
		pm.registryKeys,
		pm.throughput,
		pm.publishesTotal,
	)

	if source != nil {
		pm.snapshots = newSnapshotCollector(namespace, source)
		registerer.MustRegister(pm.snapshots)
	}

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Debug("Prometheus metrics initialized", zap.String("namespace", namespace))
	return pm
}

// RecordSample counts one sample by result
func (pm *PrometheusMetrics) RecordSample(result string) {
	pm.samplesTotal.WithLabelValues(result).Inc()
}

// IncActiveWorkers increments the running worker gauge
func (pm *PrometheusMetrics) IncActiveWorkers() {
	pm.activeWorkers.Inc()
}

// DecActiveWorkers decrements the running worker gauge
func (pm *PrometheusMetrics) DecActiveWorkers() {
	pm.activeWorkers.Dec()
}

// RecordSnapshot records how long a snapshot took and how many keys it had
func (pm *PrometheusMetrics) RecordSnapshot(duration time.Duration, keys int) {
	pm.snapshotDuration.Observe(duration.Seconds())
	pm.registryKeys.Set(float64(keys))
}

// SetCurrentThroughput sets the rate of the last completed bucket
func (pm *PrometheusMetrics) SetCurrentThroughput(perSecond float64) {
	pm.throughput.Set(perSecond)
}

// RecordPublish counts one snapshot publication by result
func (pm *PrometheusMetrics) RecordPublish(result string) {
	pm.publishesTotal.WithLabelValues(result).Inc()
}

// SamplesRecorded returns the current value of the samples counter for result
func (pm *PrometheusMetrics) SamplesRecorded(result string) float64 {
	metric := &dto.Metric{}
	if err := pm.samplesTotal.WithLabelValues(result).Write(metric); err != nil {
		pm.logger.Warn("Failed to read counter value", zap.Error(err))
		return 0
	}
	return metric.GetCounter().GetValue()
}

// ServeHTTP serves the metrics endpoint
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}
