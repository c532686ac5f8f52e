package summary

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/stats/classify"
	"github.com/edgecomet/loadstats/internal/stats/table"
	"github.com/edgecomet/loadstats/pkg/types"
)

func runErrors(t *testing.T, opts classify.Options, samples []*types.Sample) (*table.Table, *ErrorsSummarizer) {
	t.Helper()
	s := NewErrorsSummarizer(opts)
	p := NewPipeline[*ErrorCount](s, zap.NewNop())
	require.NoError(t, p.Start())
	for _, smp := range samples {
		require.NoError(t, p.Consume(smp))
	}
	require.NoError(t, p.Finish())
	tbl, err := p.BuildTable()
	require.NoError(t, err)
	return tbl, s
}

func TestErrorsSummarizer_Shares(t *testing.T) {
	var samples []*types.Sample
	for i := 0; i < 7; i++ {
		samples = append(samples, &types.Sample{Label: "home", Success: true, ResponseCode: "200", ResponseMessage: "OK"})
	}
	for i := 0; i < 3; i++ {
		samples = append(samples, &types.Sample{Label: "home", ResponseCode: "500", ResponseMessage: "Internal Error"})
	}

	tbl, s := runErrors(t, classify.DefaultOptions(), samples)

	assert.Equal(t, []string{"Type of error", "Number of errors", "% in errors", "% in all samples"}, tbl.Titles.Strings())
	require.Len(t, tbl.Rows, 1)
	row := tbl.Rows[0]
	assert.Equal(t, "500/Internal Error", row[0].Str())
	assert.EqualValues(t, 3, row[1].Int())
	assert.InDelta(t, 100.0, row[2].Float(), 1e-9)
	assert.InDelta(t, 30.0, row[3].Float(), 1e-9)
	assert.EqualValues(t, 3, s.ErrorCount())
}

func TestErrorsSummarizer_MultipleSignatures(t *testing.T) {
	samples := []*types.Sample{
		{Label: "a", ResponseCode: "404", ResponseMessage: "Not Found"},
		{Label: "b", ResponseCode: "200", FailureMessage: "Expected \"id\" in body"},
		{Label: "c", ResponseCode: "200", Success: true},
		{Label: "d", ResponseCode: "404", ResponseMessage: "Not Found"},
		{Label: "e", ResponseCode: "Non HTTP response code: java.net.SocketTimeoutException"},
	}

	tbl, _ := runErrors(t, classify.DefaultOptions(), samples)
	require.Len(t, tbl.Rows, 3)

	assert.Equal(t, []string{"404/Not Found", "2", "50.00", "40.00"}, tbl.Rows[0].Strings())
	assert.Equal(t, []string{`Expected \"id\" in body`, "1", "25.00", "20.00"}, tbl.Rows[1].Strings())
	assert.Equal(t, []string{"Non HTTP response code: java.net.SocketTimeoutException", "1", "25.00", "20.00"}, tbl.Rows[2].Strings())
}

func TestErrorsSummarizer_AssertionSentinel(t *testing.T) {
	samples := []*types.Sample{
		{Label: "b", ResponseCode: "200", FailureMessage: "body mismatch"},
		{Label: "b", ResponseCode: "302"},
	}

	tbl, _ := runErrors(t, classify.Options{UseAssertionMessage: false}, samples)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, classify.AssertionFailed, tbl.Rows[0][0].Str())
	assert.EqualValues(t, 2, tbl.Rows[0][1].Int())
}

func TestErrorsSummarizer_NoErrors(t *testing.T) {
	samples := []*types.Sample{
		{Label: "a", ResponseCode: "200", Success: true},
	}
	tbl, _ := runErrors(t, classify.DefaultOptions(), samples)
	assert.Empty(t, tbl.Rows)
}

func TestErrorsSummarizer_DegenerateShares(t *testing.T) {
	s := NewErrorsSummarizer(classify.DefaultOptions())
	row := s.DataRow(&Info[*ErrorCount]{Key: "500", Data: &ErrorCount{Count: 1}}, &ErrorCount{})

	require.Len(t, row, 4)
	assert.True(t, row[2].IsNaN())
	assert.True(t, row[3].IsNaN())
	assert.Equal(t, table.NaNText, row[3].String())
	assert.True(t, math.IsNaN(row[2].Float()))
}

func TestErrorsSummarizer_ResetOnStart(t *testing.T) {
	s := NewErrorsSummarizer(classify.DefaultOptions())
	s.errorCount = 42
	p := NewPipeline[*ErrorCount](s, nil)
	require.NoError(t, p.Start())
	assert.Zero(t, s.ErrorCount())
	assert.False(t, s.HasOverallRow())
}
