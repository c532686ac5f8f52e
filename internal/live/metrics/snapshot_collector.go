package metrics

import (
	"strconv"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
)

// snapshotCollector reads the registry on every scrape and exports one series
// per key. The overall row carries overall="true", keyed rows overall="false",
// so a sample labelled like the overall key never collides with it.
type snapshotCollector struct {
	source SnapshotFunc

	samples    *prometheus.Desc
	errors     *prometheus.Desc
	errorRatio *prometheus.Desc
	latency    *prometheus.Desc
	throughput *prometheus.Desc
}

func newSnapshotCollector(namespace string, source SnapshotFunc) *snapshotCollector {
	labels := []string{"key", "overall"}
	return &snapshotCollector{
		source: source,
		samples: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stats", "samples_total"),
			"Samples aggregated per key",
			labels, nil),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stats", "errors_total"),
			"Failed samples aggregated per key",
			labels, nil),
		errorRatio: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stats", "error_ratio"),
			"Failed samples divided by samples (0-1)",
			labels, nil),
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stats", "latency_milliseconds"),
			"Sample latency by quantile",
			[]string{"key", "overall", "quantile"}, nil),
		throughput: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "stats", "throughput_per_second"),
			"Samples per second over the span covered by the key",
			labels, nil),
	}
}

// Describe implements prometheus.Collector
func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.samples
	ch <- c.errors
	ch <- c.errorRatio
	ch <- c.latency
	ch <- c.throughput
}

// Collect implements prometheus.Collector
func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	seen := make(map[[2]string]struct{})
	for _, row := range c.source() {
		key := labelValue(row.Key)
		overall := strconv.FormatBool(row.Overall)

		// distinct invalid byte sequences may escape to the same text
		id := [2]string{key, overall}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		st := row.Value
		ch <- prometheus.MustNewConstMetric(c.samples, prometheus.CounterValue, float64(st.Count), key, overall)
		ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(st.Errors), key, overall)
		ch <- prometheus.MustNewConstMetric(c.errorRatio, prometheus.GaugeValue, st.ErrorPercent/100, key, overall)
		ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, st.MeanMS, key, overall, "mean")
		ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, float64(st.P90MS), key, overall, "0.9")
		ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, float64(st.P95MS), key, overall, "0.95")
		ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, float64(st.P99MS), key, overall, "0.99")
		ch <- prometheus.MustNewConstMetric(c.throughput, prometheus.GaugeValue, st.Throughput, key, overall)
	}
}

// labelValue makes key valid UTF-8. Invalid bytes become \xNN so Latin-1
// labels stay readable and distinct.
func labelValue(key string) string {
	if utf8.ValidString(key) {
		return key
	}
	buf := make([]byte, 0, len(key)+8)
	for i := 0; i < len(key); {
		r, size := utf8.DecodeRuneInString(key[i:])
		if r == utf8.RuneError && size == 1 {
			buf = append(buf, '\\', 'x', hexDigits[key[i]>>4], hexDigits[key[i]&0x0f])
			i++
			continue
		}
		buf = append(buf, key[i:i+size]...)
		i += size
	}
	return string(buf)
}

const hexDigits = "0123456789abcdef"
