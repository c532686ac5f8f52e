package summary

import (
	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/table"
	"github.com/edgecomet/loadstats/internal/stats/topk"
	"github.com/edgecomet/loadstats/pkg/types"
)

// TopErrorsBySamplerName is the registered name of the top errors summarizer
const TopErrorsBySamplerName = "top5_errors_by_sampler"

// MaxErrorsInTop is the number of (error, count) column pairs per row
const MaxErrorsInTop = topk.DefaultN

// TopErrorsBySampler keeps, per sampler label, the most frequent error signatures
type TopErrorsBySampler struct {
	opts classify.Options
	// ignoreTransactionController excludes group markers from keyed infos too;
	// they never count toward the overall info
	ignoreTransactionController bool
}

// NewTopErrorsBySampler returns the top errors summarizer
func NewTopErrorsBySampler(opts classify.Options, ignoreTransactionController bool) *TopErrorsBySampler {
	return &TopErrorsBySampler{
		opts:                        opts,
		ignoreTransactionController: ignoreTransactionController,
	}
}

func (s *TopErrorsBySampler) Name() string { return TopErrorsBySamplerName }

func (s *TopErrorsBySampler) Reset() {}

func (s *TopErrorsBySampler) KeyFromSample(sample *types.Sample) string {
	return sample.Label
}

func (s *TopErrorsBySampler) NewData() *topk.Tracker { return topk.NewTracker() }

func (s *TopErrorsBySampler) UpdateData(info *Info[*topk.Tracker], sample *types.Sample) {
	if sample.GroupMarker && (info.Overall || s.ignoreTransactionController) {
		return
	}
	if !sample.Success {
		info.Data.RegisterError(classify.Signature(sample, s.opts))
		info.Data.IncErrors()
	}
	info.Data.IncTotal()
}

func (s *TopErrorsBySampler) Titles() table.Row {
	titles := table.Row{
		table.String("Sample"),
		table.String("#Samples"),
		table.String("#Errors"),
	}
	for i := 0; i < MaxErrorsInTop; i++ {
		titles = append(titles, table.String("Error"), table.String("#Errors"))
	}
	return titles
}

// DataRow leaves out samplers without errors. The overall row is always rendered.
func (s *TopErrorsBySampler) DataRow(info *Info[*topk.Tracker], _ *topk.Tracker) table.Row {
	tracker := info.Data
	if tracker.Errors() == 0 && !info.Overall {
		return nil
	}
	label := info.Key
	if info.Overall {
		label = TotalLabel
	}

	row := make(table.Row, 0, 3+2*MaxErrorsInTop)
	row = append(row,
		table.String(label),
		table.Uint(tracker.Total()),
		table.Uint(tracker.Errors()))

	top := tracker.TopN(MaxErrorsInTop)
	for _, e := range top {
		row = append(row, table.String(e.Classification), table.Uint(e.Count))
	}
	for i := len(top); i < MaxErrorsInTop; i++ {
		row = append(row, table.Empty(), table.Empty())
	}
	return row
}

func (s *TopErrorsBySampler) HasOverallRow() bool { return true }
