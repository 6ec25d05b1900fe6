package imports

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairtrack_import_runs_total",
		Help: "Number of reconciliation runs started.",
	})
	rowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairtrack_import_rows_processed_total",
		Help: "Rows that completed all reconciliation steps.",
	})
	rowsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairtrack_import_rows_failed_total",
		Help: "Accepted rows whose persistence steps did not all complete.",
	})
	rowsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fairtrack_import_rows_rejected_total",
		Help: "Rows rejected by field validation before reconciliation.",
	})
)

// CountRejected adds validation rejections to the run metrics. The row
// normalizer is a pure function, so the web and CLI entrypoints report
// rejections after calling it.
func CountRejected(n int) {
	rowsRejected.Add(float64(n))
}
