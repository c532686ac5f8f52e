package metrics

import (
	"time"

	"github.com/valyala/fasthttp"

	"github.com/edgecomet/loadstats/internal/common/httputil"
	"github.com/edgecomet/loadstats/internal/live/accumulator"
	"github.com/edgecomet/loadstats/internal/stats/table"
)

// SnapshotPath serves the live statistics table as JSON
const SnapshotPath = "/snapshot"

// SnapshotView is the body of a snapshot response
type SnapshotView struct {
	RunID   string       `json:"run_id"`
	TakenAt time.Time    `json:"taken_at"`
	Table   *table.Table `json:"table"`
}

// NewSnapshotHandler renders the current registry content on every GET
func NewSnapshotHandler(source SnapshotFunc, runID func() string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !httputil.AllowMethods(ctx, fasthttp.MethodGet) {
			return
		}
		if source == nil {
			httputil.JSONError(ctx, "no statistics source", fasthttp.StatusServiceUnavailable)
			return
		}

		view := SnapshotView{
			TakenAt: time.Now().UTC(),
			Table:   accumulator.StatsTable(source()),
		}
		if runID != nil {
			view.RunID = runID()
		}
		httputil.JSONData(ctx, view)
	}
}
