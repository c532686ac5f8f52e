// Package accumulator provides concrete per-key accumulators for the live
// statistics registry.
package accumulator

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/edgecomet/loadstats/internal/live/registry"
	"github.com/edgecomet/loadstats/internal/stats/aggregator"
	"github.com/edgecomet/loadstats/pkg/types"
)

// Histogram bounds in milliseconds, same range the load generator records.
const (
	minTrackableMS = 1
	maxTrackableMS = 300000
	sigFigures     = 3
)

// Stats is the readout of a SamplingStats accumulator.
type Stats struct {
	Label        string  `json:"label" yaml:"label"`
	Count        int64   `json:"count" yaml:"count"`
	Errors       int64   `json:"errors" yaml:"errors"`
	ErrorPercent float64 `json:"error_percent" yaml:"error_percent"`
	MeanMS       float64 `json:"mean_ms" yaml:"mean_ms"`
	MinMS        int64   `json:"min_ms" yaml:"min_ms"`
	MaxMS        int64   `json:"max_ms" yaml:"max_ms"`
	P90MS        int64   `json:"p90_ms" yaml:"p90_ms"`
	P95MS        int64   `json:"p95_ms" yaml:"p95_ms"`
	P99MS        int64   `json:"p99_ms" yaml:"p99_ms"`
	Throughput   float64 `json:"throughput" yaml:"throughput"`
	ReceivedKBps float64 `json:"received_kbps" yaml:"received_kbps"`
	Bytes        int64   `json:"bytes" yaml:"bytes"`
}

// SamplingStats accumulates counts, a latency histogram and the time span
// covered by its samples. Not safe for concurrent use; the registry locks it.
type SamplingStats struct {
	label     string
	count     int64
	errors    int64
	bytes     int64
	latencies *hdrhistogram.Histogram
	first     time.Time
	last      time.Time
}

// NewSamplingStats creates an empty accumulator for label.
func NewSamplingStats(label string) *SamplingStats {
	return &SamplingStats{
		label:     label,
		latencies: hdrhistogram.New(minTrackableMS, maxTrackableMS, sigFigures),
	}
}

// SamplingFactory builds SamplingStats entries for a registry.
func SamplingFactory(key string) registry.Accumulator[Stats] {
	return NewSamplingStats(key)
}

// Add implements registry.Accumulator.
func (s *SamplingStats) Add(sample *types.Sample) {
	s.count++
	if !sample.Success {
		s.errors++
	}
	s.bytes += sample.Bytes

	ms := sample.Elapsed.Milliseconds()
	if ms < minTrackableMS {
		ms = minTrackableMS
	}
	if ms > maxTrackableMS {
		ms = maxTrackableMS
	}
	_ = s.latencies.RecordValue(ms)

	if sample.Timestamp.IsZero() {
		return
	}
	end := sample.Timestamp.Add(sample.Elapsed)
	if s.first.IsZero() || sample.Timestamp.Before(s.first) {
		s.first = sample.Timestamp
	}
	if end.After(s.last) {
		s.last = end
	}
}

// Snapshot implements registry.Accumulator.
func (s *SamplingStats) Snapshot() Stats {
	st := Stats{
		Label:  s.label,
		Count:  s.count,
		Errors: s.errors,
		Bytes:  s.bytes,
	}
	if s.count == 0 {
		return st
	}

	st.ErrorPercent = aggregator.Percentage(float64(s.errors), float64(s.count))

	st.MeanMS = s.latencies.Mean()
	st.MinMS = s.latencies.Min()
	st.MaxMS = s.latencies.Max()
	st.P90MS = s.latencies.ValueAtQuantile(90)
	st.P95MS = s.latencies.ValueAtQuantile(95)
	st.P99MS = s.latencies.ValueAtQuantile(99)

	spanMS := s.last.Sub(s.first).Milliseconds()
	if spanMS > 0 {
		rate := aggregator.NewTimeRateAggregator(spanMS)
		rate.AddValue(float64(s.count))
		st.Throughput = rate.Result()

		kb := aggregator.NewTimeRateAggregator(spanMS)
		kb.AddValue(float64(s.bytes) / 1024)
		st.ReceivedKBps = kb.Result()
	}
	return st
}
