package accumulator

import (
	"github.com/edgecomet/loadstats/internal/live/registry"
	"github.com/edgecomet/loadstats/internal/stats/aggregator"
	"github.com/edgecomet/loadstats/internal/stats/table"
)

// StatsTableName names the live statistics table
const StatsTableName = "live_statistics"

// StatsTitles are the columns of the live statistics table
func StatsTitles() table.Row {
	return table.Row{
		table.String("Label"),
		table.String("# Samples"),
		table.String("Average"),
		table.String("Min"),
		table.String("Max"),
		table.String("90% Line"),
		table.String("95% Line"),
		table.String("99% Line"),
		table.String("Error %"),
		table.String("Throughput"),
		table.String("Received KB/sec"),
	}
}

// StatsTable renders a registry snapshot, overall row last as in the snapshot.
// The error column is NaN for keys that have not seen a sample yet.
func StatsTable(rows []registry.Row[Stats]) *table.Table {
	t := table.New(StatsTableName, StatsTitles())
	for _, row := range rows {
		st := row.Value
		label := row.Key
		if !row.Overall && st.Label != "" {
			label = st.Label
		}
		t.AddRow(table.Row{
			table.String(label),
			table.Int(st.Count),
			table.Float(st.MeanMS),
			table.Int(st.MinMS),
			table.Int(st.MaxMS),
			table.Int(st.P90MS),
			table.Int(st.P95MS),
			table.Int(st.P99MS),
			table.Float(aggregator.Percentage(float64(st.Errors), float64(st.Count))),
			table.Float(st.Throughput),
			table.Float(st.ReceivedKBps),
		})
	}
	return t
}
