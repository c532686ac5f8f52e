package summary

import (
	"github.com/edgecomet/loadstats/internal/stats/aggregator"
	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/table"
	"github.com/edgecomet/loadstats/pkg/types"
)

// ErrorsName is the registered name of the errors summarizer
const ErrorsName = "errors"

// TotalLabel labels overall rows
const TotalLabel = "Total"

// ErrorCount is the payload of the errors summarizer.
// On the overall info it counts every sample, on keyed infos failed samples only.
type ErrorCount struct {
	Count uint64
}

// ErrorsSummarizer groups failed samples by error signature
type ErrorsSummarizer struct {
	opts       classify.Options
	errorCount uint64
}

// NewErrorsSummarizer returns the errors summarizer
func NewErrorsSummarizer(opts classify.Options) *ErrorsSummarizer {
	return &ErrorsSummarizer{opts: opts}
}

func (s *ErrorsSummarizer) Name() string { return ErrorsName }

func (s *ErrorsSummarizer) Reset() { s.errorCount = 0 }

func (s *ErrorsSummarizer) KeyFromSample(sample *types.Sample) string {
	return classify.Signature(sample, s.opts)
}

func (s *ErrorsSummarizer) NewData() *ErrorCount { return &ErrorCount{} }

func (s *ErrorsSummarizer) UpdateData(info *Info[*ErrorCount], sample *types.Sample) {
	if info.Overall {
		info.Data.Count++
		return
	}
	if !sample.Success {
		s.errorCount++
		info.Data.Count++
	}
}

func (s *ErrorsSummarizer) Titles() table.Row {
	return table.Row{
		table.String("Type of error"),
		table.String("Number of errors"),
		table.String("% in errors"),
		table.String("% in all samples"),
	}
}

// DataRow leaves out signatures that only ever saw successful samples
func (s *ErrorsSummarizer) DataRow(info *Info[*ErrorCount], overall *ErrorCount) table.Row {
	if !info.Overall && info.Data.Count == 0 {
		return nil
	}
	label := info.Key
	if info.Overall {
		label = TotalLabel
	}
	count := float64(info.Data.Count)
	return table.Row{
		table.String(label),
		table.Uint(info.Data.Count),
		table.Float(aggregator.Percentage(count, float64(s.errorCount))),
		table.Float(aggregator.Percentage(count, float64(overall.Count))),
	}
}

// HasOverallRow is false: the overall count is only the denominator of "% in all samples"
func (s *ErrorsSummarizer) HasOverallRow() bool { return false }

// ErrorCount returns the number of failed samples consumed since Start
func (s *ErrorsSummarizer) ErrorCount() uint64 { return s.errorCount }
