// Package aggregator provides numeric strategies that turn accumulated
// values into rates and ratios.
package aggregator

import "math"

// Aggregator accumulates values and reduces them to a single result.
// Implementations are not safe for concurrent use; callers own the locking.
type Aggregator interface {
	// AddValue feeds one value into the aggregation.
	AddValue(v float64)
	// Count returns how many values were added since the last reset.
	Count() uint64
	// Result returns the aggregated value.
	Result() float64
	// Reset clears accumulated state but keeps configuration.
	Reset()
}

// DefaultGranularityMS is the bucket width used when none is configured.
const DefaultGranularityMS int64 = 1

// TimeRateAggregator converts a quantity accumulated over one time bucket
// into a per-second rate.
type TimeRateAggregator struct {
	count         uint64
	value         float64
	granularityMS int64
}

// NewTimeRateAggregator creates a rate aggregator for buckets of granularityMS
// milliseconds. Non-positive values fall back to DefaultGranularityMS.
func NewTimeRateAggregator(granularityMS int64) *TimeRateAggregator {
	a := &TimeRateAggregator{}
	a.SetGranularity(granularityMS)
	return a
}

// Granularity returns the bucket width in milliseconds.
func (a *TimeRateAggregator) Granularity() int64 {
	if a.granularityMS <= 0 {
		return DefaultGranularityMS
	}
	return a.granularityMS
}

// SetGranularity sets the bucket width in milliseconds.
func (a *TimeRateAggregator) SetGranularity(granularityMS int64) {
	if granularityMS <= 0 {
		granularityMS = DefaultGranularityMS
	}
	a.granularityMS = granularityMS
}

// AddValue implements Aggregator.
func (a *TimeRateAggregator) AddValue(v float64) {
	a.count++
	a.value += v
}

// Count implements Aggregator.
func (a *TimeRateAggregator) Count() uint64 {
	return a.count
}

// Result returns value * 1000 / granularity, i.e. the per-second rate.
func (a *TimeRateAggregator) Result() float64 {
	return a.value * 1000 / float64(a.Granularity())
}

// Reset zeroes count and value. Granularity is preserved.
func (a *TimeRateAggregator) Reset() {
	a.count = 0
	a.value = 0
}

// Percentage returns part*100/whole, or NaN when whole is zero.
func Percentage(part, whole float64) float64 {
	if whole == 0 {
		return math.NaN()
	}
	return part * 100 / whole
}
