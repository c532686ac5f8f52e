package metrics

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Sample result labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// MetricsCollector centralizes metrics recording for the live runner
type MetricsCollector struct {
	prometheus *PrometheusMetrics
	logger     *zap.Logger
}

// NewMetricsCollector creates a collector registered with the default registry
func NewMetricsCollector(namespace string, source SnapshotFunc, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: NewPrometheusMetrics(namespace, source, logger),
		logger:     logger,
	}
}

// NewMetricsCollectorWith wraps existing Prometheus metrics
func NewMetricsCollectorWith(pm *PrometheusMetrics, logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		prometheus: pm,
		logger:     logger,
	}
}

// RecordSample records one sample handed to the registry
func (mc *MetricsCollector) RecordSample(success, skipped bool) {
	switch {
	case skipped:
		mc.prometheus.RecordSample(ResultSkipped)
	case success:
		mc.prometheus.RecordSample(ResultSuccess)
	default:
		mc.prometheus.RecordSample(ResultFailure)
	}
}

// IncActiveWorkers increments active worker counter
func (mc *MetricsCollector) IncActiveWorkers() {
	mc.prometheus.IncActiveWorkers()
}

// DecActiveWorkers decrements active worker counter
func (mc *MetricsCollector) DecActiveWorkers() {
	mc.prometheus.DecActiveWorkers()
}

// RecordSnapshot records a registry snapshot read
func (mc *MetricsCollector) RecordSnapshot(duration time.Duration, keys int) {
	mc.prometheus.RecordSnapshot(duration, keys)

	mc.logger.Debug("Recorded snapshot metric",
		zap.Duration("duration", duration),
		zap.Int("keys", keys))
}

// SetCurrentThroughput records the rate of the last completed granularity bucket
func (mc *MetricsCollector) SetCurrentThroughput(perSecond float64) {
	mc.prometheus.SetCurrentThroughput(perSecond)
}

// RecordPublish records the outcome of a snapshot publication
func (mc *MetricsCollector) RecordPublish(err error) {
	if err != nil {
		mc.prometheus.RecordPublish(ResultFailure)
		return
	}
	mc.prometheus.RecordPublish(ResultSuccess)
}

// SamplesRecorded returns how many samples were recorded with result
func (mc *MetricsCollector) SamplesRecorded(result string) float64 {
	return mc.prometheus.SamplesRecorded(result)
}

// ServeHTTP implements metricsserver.MetricsHandler
func (mc *MetricsCollector) ServeHTTP(ctx *fasthttp.RequestCtx) {
	mc.prometheus.ServeHTTP(ctx)
}
