package accumulator

import (
	"github.com/edgecomet/loadstats/internal/live/registry"
	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/topk"
	"github.com/edgecomet/loadstats/pkg/types"
)

// TopErrors is the readout of an ErrorTracker.
type TopErrors struct {
	Total  uint64       `json:"total" yaml:"total"`
	Errors uint64       `json:"errors" yaml:"errors"`
	Top    []topk.Entry `json:"top" yaml:"top"`
}

// ErrorTracker ranks the error signatures seen for one key.
type ErrorTracker struct {
	tracker *topk.Tracker
	opts    classify.Options
	n       int
}

// NewErrorTracker creates an ErrorTracker keeping the n most frequent signatures.
func NewErrorTracker(opts classify.Options, n int) *ErrorTracker {
	if n <= 0 {
		n = topk.DefaultN
	}
	return &ErrorTracker{
		tracker: topk.NewTracker(),
		opts:    opts,
		n:       n,
	}
}

// ErrorTrackerFactory returns a registry factory for ErrorTracker entries.
func ErrorTrackerFactory(opts classify.Options, n int) registry.Factory[TopErrors] {
	return func(string) registry.Accumulator[TopErrors] {
		return NewErrorTracker(opts, n)
	}
}

// Add implements registry.Accumulator.
func (e *ErrorTracker) Add(sample *types.Sample) {
	if !sample.Success {
		e.tracker.RegisterError(classify.Signature(sample, e.opts))
		e.tracker.IncErrors()
	}
	e.tracker.IncTotal()
}

// Snapshot implements registry.Accumulator.
func (e *ErrorTracker) Snapshot() TopErrors {
	return TopErrors{
		Total:  e.tracker.Total(),
		Errors: e.tracker.Errors(),
		Top:    e.tracker.TopN(e.n),
	}
}
